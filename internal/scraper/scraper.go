package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/internal/store"
	"pogocal/eventworker/logger"
	apperrors "pogocal/eventworker/pkg/errors"
)

const (
	// cacheKey is the cache entry holding the last scrape result
	cacheKey = "events"

	// DefaultCacheTTL is how long a scrape result stays warm
	DefaultCacheTTL = 30 * time.Minute
)

// Orchestrator drives the scrape pipeline: fetch, extract, validate,
// dedupe against history, cache, publish. A failed run caches and
// publishes nothing.
type Orchestrator struct {
	fetcher   Fetcher
	extractor *Extractor
	cache     *store.Cache[[]event.Event]
	history   *store.History
	hub       *Hub
	log       *logger.Logger

	newsURL  string
	cacheTTL time.Duration
	now      func() time.Time
}

// NewOrchestrator wires the pipeline together. Collaborators are passed
// in explicitly so tests can substitute any of them.
func NewOrchestrator(
	newsURL string,
	fetcher Fetcher,
	cache *store.Cache[[]event.Event],
	history *store.History,
	hub *Hub,
	cacheTTL time.Duration,
) *Orchestrator {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: NewExtractor(),
		cache:     cache,
		history:   history,
		hub:       hub,
		log:       logger.ForScraper(),
		newsURL:   newsURL,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// ScrapeEvents runs one scrape. With useCache, a live cached result is
// returned directly and the fetch collaborator is never invoked.
func (o *Orchestrator) ScrapeEvents(ctx context.Context, useCache bool) ([]event.Event, error) {
	if useCache {
		if cached, ok := o.cache.Get(cacheKey); ok {
			o.log.Info().Int("events", len(cached)).Msg("Serving events from cache")
			o.hub.Emit(SignalEventsLoaded, Payload{Source: "cache", Events: cached})
			return cached, nil
		}
	}

	o.hub.Emit(SignalScrapeStarted, Payload{Source: "scrape"})
	start := o.now()

	body, err := o.fetcher.Fetch(ctx, o.newsURL)
	if err != nil {
		o.log.Error().Err(err).Str("url", o.newsURL).Msg("Fetch failed")
		o.hub.Emit(SignalScrapeError, Payload{Err: err})
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		parseErr := apperrors.NewParsing("failed to parse news page", err)
		o.hub.Emit(SignalScrapeError, Payload{Err: parseErr})
		return nil, parseErr
	}

	drafts := o.extractor.Extract(doc, o.newsURL)

	now := o.now()
	valid := make([]event.Event, 0, len(drafts))
	rejected := 0
	for _, draft := range drafts {
		ev, ok := event.Validate(draft, now)
		if !ok {
			rejected++
			continue
		}
		valid = append(valid, *ev)
	}

	o.cache.Set(cacheKey, valid, o.cacheTTL)
	for _, ev := range valid {
		o.history.Add(ev)
	}

	o.log.Info().
		Int("candidates", len(drafts)).
		Int("valid", len(valid)).
		Int("rejected", rejected).
		Dur("elapsed", o.now().Sub(start)).
		Msg("Scrape complete")

	o.hub.Emit(SignalEventsLoaded, Payload{Source: "scrape", Events: valid})
	return valid, nil
}

// ScrapeNewEvents scrapes without the cache and returns only events whose
// id was absent from history when the call started.
func (o *Orchestrator) ScrapeNewEvents(ctx context.Context) ([]event.Event, error) {
	known := o.history.IDSet()

	all, err := o.ScrapeEvents(ctx, false)
	if err != nil {
		return nil, err
	}

	fresh := make([]event.Event, 0)
	for _, ev := range all {
		if _, seen := known[ev.ID]; !seen {
			fresh = append(fresh, ev)
		}
	}

	o.log.Info().Int("new_events", len(fresh)).Msg("Incremental scrape complete")
	return fresh, nil
}

// ScheduleAutoScraping starts a polling loop that looks for new events on
// the given interval and returns a cancel function. A failing iteration
// is logged and polling continues; cancellation only stops future
// iterations, work already in flight runs to completion.
func (o *Orchestrator) ScheduleAutoScraping(interval time.Duration) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// a tick buffered before cancellation can still win the
				// select; re-check so no iteration starts past cancel
				select {
				case <-done:
					return
				default:
				}
				fresh, err := o.ScrapeNewEvents(context.Background())
				if err != nil {
					o.log.Warn().Err(err).Msg("Auto-scrape iteration failed")
					continue
				}
				if len(fresh) > 0 {
					o.hub.Emit(SignalNewEvents, Payload{Source: "poll", Events: fresh})
				}
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ScrapeStats is the observability snapshot exposed to callers
type ScrapeStats struct {
	TotalEventsScraped int                `json:"totalEventsScraped"`
	LastScrapedAt      *time.Time         `json:"lastScrapedAt,omitempty"`
	EventsByCategory   map[string]int     `json:"eventsByCategory"`
	CacheInfo          store.StorageInfo  `json:"cacheInfo"`
	History            store.HistoryStats `json:"history"`
}

// Stats reports scraping statistics from history and cache
func (o *Orchestrator) Stats() ScrapeStats {
	historyStats := o.history.Stats()

	stats := ScrapeStats{
		TotalEventsScraped: historyStats.TotalEvents,
		EventsByCategory:   historyStats.ByCategory,
		CacheInfo:          o.cache.Info(),
		History:            historyStats,
	}
	if records := o.history.List(); len(records) > 0 {
		last := records[0].ScrapedAt
		stats.LastScrapedAt = &last
	}
	return stats
}

// ClearAllData wipes the scrape cache and the history log
func (o *Orchestrator) ClearAllData() {
	o.cache.Clear()
	o.history.Clear()
	o.log.Info().Msg("Cleared scrape cache and history")
}
