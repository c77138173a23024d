package event

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// Validate enforces the canonical event schema on a raw draft. It returns
// the normalized event and true, or nil and false when any required field
// is blank after trimming or the date cannot be resolved. The draft is
// never mutated and rejected drafts produce no partial record.
func Validate(draft RawDraft, now time.Time) (*Event, bool) {
	title := truncate(CollapseWhitespace(draft.Title), maxTitleLen)
	description := truncate(CollapseWhitespace(draft.Description), maxDescriptionLen)

	sourceURL := strings.TrimSpace(draft.FullURL)
	if sourceURL == "" {
		sourceURL = strings.TrimSpace(draft.Link)
	}

	dateStr := strings.TrimSpace(draft.Date)
	if title == "" || description == "" || sourceURL == "" || dateStr == "" {
		return nil, false
	}

	start, ok := parseDraftDate(dateStr)
	if !ok {
		return nil, false
	}

	return &Event{
		ID:          ContentID(title, start, sourceURL),
		Title:       title,
		Description: description,
		StartDate:   start,
		EndDate:     start,
		ImageURL:    strings.TrimSpace(draft.ImageURL),
		SourceURL:   sourceURL,
		Category:    ClassifyCategory(title),
		ScrapedAt:   now,
	}, true
}

// parseDraftDate accepts either an ISO timestamp or a locale date fragment
func parseDraftDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return ParseDateFragment(s)
}

// ContentID derives a stable identifier from the content of an event so
// that re-extracting the same announcement yields the same id across runs.
func ContentID(title string, start time.Time, sourceURL string) string {
	h := sha1.Sum([]byte(title + "|" + start.UTC().Format(time.RFC3339) + "|" + sourceURL))
	return hex.EncodeToString(h[:])[:16]
}

// CollapseWhitespace trims s and folds internal whitespace runs into
// single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at max characters, not bytes, so accented text keeps
// its full budget
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}
