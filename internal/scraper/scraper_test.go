package scraper

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/internal/store"
	apperrors "pogocal/eventworker/pkg/errors"
	"pogocal/eventworker/services/kvstore"
)

const fixtureHTML = `<html><body>
	<a href="/es/news/go-fest-2025">Festival de Pokémon GO 2025 29 jul 2025</a>
	<a href="/es/news/community-day">Día de la Comunidad de agosto 3 ago 2025</a>
	<a href="/es/news/raid-weekend">Fin de semana de incursiones 10 ago 2025</a>
</body></html>`

// stubFetcher counts invocations and serves canned pages or errors
type stubFetcher struct {
	mu    sync.Mutex
	html  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, pageURL string) (io.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return strings.NewReader(s.html), nil
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestOrchestrator(fetcher Fetcher) (*Orchestrator, *Hub) {
	kv := kvstore.NewMemoryStore()
	hub := NewHub()
	orch := NewOrchestrator(
		"https://pokemongo.com/es/news",
		fetcher,
		store.NewCache[[]event.Event](kv, store.CachePrefix),
		store.NewHistory(kv, store.HistoryPrefix, 100),
		hub,
		30*time.Minute,
	)
	return orch, hub
}

func TestScrapeEventsPipeline(t *testing.T) {
	fetcher := &stubFetcher{html: fixtureHTML}
	orch, hub := newTestOrchestrator(fetcher)

	var loaded []Payload
	hub.Subscribe(SignalEventsLoaded, func(p Payload) { loaded = append(loaded, p) })

	events, err := orch.ScrapeEvents(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Every event is fully normalized
	for _, ev := range events {
		assert.NotEmpty(t, ev.ID)
		assert.NotEmpty(t, ev.Title)
		assert.False(t, ev.StartDate.IsZero())
		assert.False(t, ev.ScrapedAt.IsZero())
	}
	assert.Equal(t, event.CategoryFestival, events[0].Category)

	// Valid events landed in history
	stats := orch.Stats()
	assert.Equal(t, 3, stats.TotalEventsScraped)

	require.Len(t, loaded, 1)
	assert.Equal(t, "scrape", loaded[0].Source)
}

func TestScrapeEventsWarmCacheSkipsFetch(t *testing.T) {
	fetcher := &stubFetcher{html: fixtureHTML}
	orch, hub := newTestOrchestrator(fetcher)

	first, err := orch.ScrapeEvents(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.callCount())

	var sources []string
	hub.Subscribe(SignalEventsLoaded, func(p Payload) { sources = append(sources, p.Source) })

	second, err := orch.ScrapeEvents(context.Background(), true)
	require.NoError(t, err)

	// Same events come back; instants go through a JSON round trip, so
	// compare ids rather than deep-comparing time.Time values
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Title, second[i].Title)
		assert.True(t, first[i].ScrapedAt.Equal(second[i].ScrapedAt))
	}

	// The fetch collaborator was not invoked at all
	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, []string{"cache"}, sources)
}

func TestScrapeEventsBypassesCacheWhenAsked(t *testing.T) {
	fetcher := &stubFetcher{html: fixtureHTML}
	orch, _ := newTestOrchestrator(fetcher)

	_, err := orch.ScrapeEvents(context.Background(), false)
	require.NoError(t, err)
	_, err = orch.ScrapeEvents(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestScrapeFailureCachesNothing(t *testing.T) {
	fetcher := &stubFetcher{err: apperrors.NewFetch("all fetch strategies failed", 503, nil)}
	orch, hub := newTestOrchestrator(fetcher)

	var failures []Payload
	hub.Subscribe(SignalScrapeError, func(p Payload) { failures = append(failures, p) })

	_, err := orch.ScrapeEvents(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeFetch, apperrors.TypeOf(err))
	require.Len(t, failures, 1)

	// Nothing was cached or recorded by the failed run
	assert.Equal(t, 0, orch.Stats().TotalEventsScraped)
	fetcher.err = nil
	_, err = orch.ScrapeEvents(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.callCount(), "cold cache after failure forces a real fetch")
}

func TestScrapeNewEventsFiltersHistory(t *testing.T) {
	fetcher := &stubFetcher{html: fixtureHTML}
	orch, _ := newTestOrchestrator(fetcher)

	fresh, err := orch.ScrapeNewEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, fresh, 3)

	// Second run sees everything already in history
	fresh, err = orch.ScrapeNewEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fresh)

	// A new announcement appears
	fetcher.mu.Lock()
	fetcher.html = fixtureHTML + `<a href="/es/news/spotlight">Hora del Foco de septiembre 2 sep 2025</a>`
	fetcher.mu.Unlock()

	fresh, err = orch.ScrapeNewEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Contains(t, fresh[0].Title, "Hora del Foco")
}

func TestScheduleAutoScraping(t *testing.T) {
	fetcher := &stubFetcher{html: fixtureHTML}
	orch, hub := newTestOrchestrator(fetcher)

	var mu sync.Mutex
	var found [][]event.Event
	hub.Subscribe(SignalNewEvents, func(p Payload) {
		mu.Lock()
		found = append(found, p.Events)
		mu.Unlock()
	})

	cancel := orch.ScheduleAutoScraping(20 * time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	cancel()
	// Cancelling twice is harmless
	cancel()

	calls := fetcher.callCount()
	assert.GreaterOrEqual(t, calls, 1, "poller should have run at least once")

	// Only the first iteration finds anything new
	mu.Lock()
	assert.Len(t, found, 1)
	mu.Unlock()

	// No further iterations after cancellation
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount())
}

func TestAutoScrapingSurvivesFailingIteration(t *testing.T) {
	fetcher := &stubFetcher{err: apperrors.NewFetch("boom", 500, nil)}
	orch, _ := newTestOrchestrator(fetcher)

	cancel := orch.ScheduleAutoScraping(15 * time.Millisecond)
	defer cancel()

	time.Sleep(80 * time.Millisecond)
	assert.GreaterOrEqual(t, fetcher.callCount(), 2, "polling continues past failures")
}
