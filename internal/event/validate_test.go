package event

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func draftFixture() RawDraft {
	return RawDraft{
		Title:       "Festival de Pokémon GO 2025 29 jul 2025",
		Description: "Únete al mayor evento del año con actividades especiales.",
		Link:        "/es/news/go-fest-2025",
		FullURL:     "https://pokemongo.com/es/news/go-fest-2025",
		Date:        "2025-07-29T00:00:00Z",
		ImageURL:    "https://pokemongo.com/img/fest.png",
	}
}

func TestValidateAcceptsCompleteDraft(t *testing.T) {
	now := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)

	ev, ok := Validate(draftFixture(), now)
	assert.True(t, ok)
	assert.NotNil(t, ev)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "https://pokemongo.com/es/news/go-fest-2025", ev.SourceURL)
	assert.Equal(t, time.Date(2025, time.July, 29, 0, 0, 0, 0, time.UTC), ev.StartDate)
	assert.Equal(t, ev.StartDate, ev.EndDate)
	assert.Equal(t, CategoryFestival, ev.Category)
	assert.Equal(t, now, ev.ScrapedAt)
}

func TestValidateRejectsMissingFields(t *testing.T) {
	now := time.Now()

	for _, mutate := range []func(*RawDraft){
		func(d *RawDraft) { d.Title = "" },
		func(d *RawDraft) { d.Title = "   " },
		func(d *RawDraft) { d.Description = "" },
		func(d *RawDraft) { d.Date = "" },
		func(d *RawDraft) { d.Date = "no date here" },
		func(d *RawDraft) { d.Link, d.FullURL = "", "" },
	} {
		draft := draftFixture()
		mutate(&draft)
		ev, ok := Validate(draft, now)
		assert.False(t, ok)
		assert.Nil(t, ev)
	}
}

func TestValidateDeterministicID(t *testing.T) {
	now := time.Now()
	a, ok := Validate(draftFixture(), now)
	assert.True(t, ok)

	// Same content an hour later still yields the same id
	b, ok := Validate(draftFixture(), now.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, a.ID, b.ID)

	// Different content yields a different id
	changed := draftFixture()
	changed.Title = "Otro evento distinto 29 jul 2025"
	c, ok := Validate(changed, now)
	assert.True(t, ok)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestValidateFallsBackToLink(t *testing.T) {
	draft := draftFixture()
	draft.FullURL = ""

	ev, ok := Validate(draft, time.Now())
	assert.True(t, ok)
	assert.Equal(t, "/es/news/go-fest-2025", ev.SourceURL)
}

func TestValidateParsesFragmentDate(t *testing.T) {
	draft := draftFixture()
	draft.Date = "29 jul 2025"

	ev, ok := Validate(draft, time.Now())
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, time.July, 29, 0, 0, 0, 0, time.UTC), ev.StartDate)
}

func TestValidateNormalizesWhitespaceAndLength(t *testing.T) {
	draft := draftFixture()
	draft.Title = "  Festival   de \n Pokémon  GO  29 jul 2025  "
	draft.Description = strings.Repeat("descripción larga ", 100)

	ev, ok := Validate(draft, time.Now())
	assert.True(t, ok)
	assert.Equal(t, "Festival de Pokémon GO 29 jul 2025", ev.Title)
	assert.LessOrEqual(t, utf8.RuneCountInString(ev.Description), 1000)
}

func TestValidateCapsCountCharactersNotBytes(t *testing.T) {
	// 200 accented characters fill the title budget exactly and must
	// survive untruncated even though they encode to 400 bytes
	draft := draftFixture()
	draft.Title = strings.Repeat("á", 200)

	ev, ok := Validate(draft, time.Now())
	assert.True(t, ok)
	assert.Equal(t, draft.Title, ev.Title)

	draft.Title = strings.Repeat("á", 250)
	ev, ok = Validate(draft, time.Now())
	assert.True(t, ok)
	assert.Equal(t, 200, utf8.RuneCountInString(ev.Title))
}

func TestValidateDoesNotMutateDraft(t *testing.T) {
	draft := draftFixture()
	draft.Title = "  spaced   title 29 jul 2025 "
	before := draft

	_, _ = Validate(draft, time.Now())
	assert.Equal(t, before, draft)
}

func TestClassifyCategory(t *testing.T) {
	cases := []struct {
		title string
		want  Category
	}{
		{"Festival de Pokémon GO 2025", CategoryFestival},
		{"Día de la Comunidad - Enero", CategoryCommunity},
		{"Incursiones de 5 estrellas", CategoryRaids},
		{"Hora del Foco semanal", CategorySpotlight},
		{"Llega un Pokémon legendario", CategoryLegendary},
		{"Nuevas funciones de la Pokédex", CategoryOther},
		{"", CategoryOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyCategory(tc.title), tc.title)
	}
}
