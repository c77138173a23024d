// Package cli wires the scrape pipeline into the eventworker command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pogocal/eventworker/config"
	"pogocal/eventworker/internal/dispatch"
	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/internal/scraper"
	"pogocal/eventworker/internal/store"
	"pogocal/eventworker/logger"
	"pogocal/eventworker/services/kvstore"
	"pogocal/eventworker/services/sink"
)

var (
	flagNoCache bool
	flagDryRun  bool
	flagNewOnly bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventworker",
		Short: "Scrape Pokémon GO event announcements and sync them to a calendar",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			godotenv.Load()
			logger.Init()
			return nil
		},
		SilenceUsage: true,
	}

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape and print the events as JSON",
		RunE:  runScrape,
	}
	scrapeCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the scrape cache")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Scrape and deliver events to the calendar in batches",
		RunE:  runSync,
	}
	syncCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Log deliveries instead of posting them")
	syncCmd.Flags().BoolVar(&flagNewOnly, "new-only", false, "Only deliver events not seen before")

	root.AddCommand(
		scrapeCmd,
		syncCmd,
		&cobra.Command{
			Use:   "run",
			Short: "Poll for new events and sync them until interrupted",
			RunE:  runWorker,
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print scraping statistics as JSON",
			RunE:  runStats,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Wipe the scrape cache and the event history",
			RunE:  runClear,
		},
	)

	return root
}

// app holds the wired services behind every subcommand
type app struct {
	cfg      *config.Config
	orch     *scraper.Orchestrator
	hub      *scraper.Hub
	settings *store.SettingsStore
	cleanup  func()
}

func buildApp(ctx context.Context) (*app, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	kv, cleanup, err := newKV(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hub := scraper.NewHub()
	orch := scraper.NewOrchestrator(
		cfg.NewsURL,
		scraper.NewPageFetcher(cfg.ProxyPrefix, cfg.FetchTimeout),
		store.NewCache[[]event.Event](kv, store.CachePrefix),
		store.NewHistory(kv, store.HistoryPrefix, cfg.HistorySize),
		hub,
		cfg.CacheTTL,
	)

	return &app{
		cfg:      cfg,
		orch:     orch,
		hub:      hub,
		settings: store.NewSettingsStore(kv, store.SettingsPrefix),
		cleanup:  cleanup,
	}, nil
}

// newKV builds the storage backend named in the configuration
func newKV(ctx context.Context, cfg *config.Config) (kvstore.Store, func(), error) {
	switch cfg.StorageBackend {
	case "redis":
		rs := kvstore.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB)
		logger.Info("Using Redis storage at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)
		return rs, func() { rs.Close() }, nil
	case "memcache":
		logger.Info("Using memcache storage at %s", cfg.MemcacheAddr)
		return kvstore.NewMemcacheStore(cfg.MemcacheAddr), func() {}, nil
	case "memory":
		return kvstore.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.StorageBackend)
	}
}

// newSink picks the calendar sink. Without an endpoint the dispatcher
// always dry-runs.
func (a *app) newSink(dryRun bool) sink.Sink {
	if dryRun || a.cfg.CalendarEndpoint == "" {
		return sink.NewDryRunSink()
	}
	return sink.NewCalendarSink(a.cfg.CalendarEndpoint, a.cfg.CalendarToken, a.cfg.FetchTimeout)
}

func (a *app) newDispatcher(dryRun bool) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(a.newSink(dryRun), a.cfg.SyncBatchSize, a.cfg.SyncBatchPause)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	events, err := a.orch.ScrapeEvents(ctx, !flagNoCache)
	if err != nil {
		return fmt.Errorf("scraping events: %w", err)
	}
	return writeJSON(events)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	var events []event.Event
	if flagNewOnly {
		events, err = a.orch.ScrapeNewEvents(ctx)
	} else {
		events, err = a.orch.ScrapeEvents(ctx, true)
	}
	if err != nil {
		return fmt.Errorf("scraping events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No events to sync")
		return nil
	}

	result, err := a.newDispatcher(flagDryRun).Sync(ctx, events)
	if err != nil {
		return fmt.Errorf("syncing events: %w", err)
	}

	if !flagDryRun && len(result.Success) > 0 {
		a.settings.Update(func(s *store.Settings) {
			now := time.Now().UTC()
			s.LastSync = &now
		})
	}
	return writeJSON(syncOutput(result))
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	log := logger.Default
	log.Info().
		Str("environment", a.cfg.Environment).
		Dur("poll_interval", a.cfg.PollInterval).
		Str("backend", a.cfg.StorageBackend).
		Msg("Starting event worker")

	dispatcher := a.newDispatcher(false)
	a.hub.Subscribe(scraper.SignalNewEvents, func(p scraper.Payload) {
		result, err := dispatcher.Sync(context.Background(), p.Events)
		if err != nil {
			log.Error().Err(err).Msg("Calendar sync failed")
			return
		}
		if len(result.Success) > 0 {
			a.settings.Update(func(s *store.Settings) {
				now := time.Now().UTC()
				s.LastSync = &now
			})
		}
	})

	// First pass runs immediately, the poller takes over afterwards
	if fresh, err := a.orch.ScrapeNewEvents(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial scrape failed")
	} else if len(fresh) > 0 {
		a.hub.Emit(scraper.SignalNewEvents, scraper.Payload{Source: "startup", Events: fresh})
	}

	cancel := a.orch.ScheduleAutoScraping(a.cfg.PollInterval)
	defer cancel()

	// The root context is cancelled on SIGINT/SIGTERM
	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.cleanup()

	return writeJSON(struct {
		Stats    scraper.ScrapeStats `json:"stats"`
		Settings store.Settings      `json:"settings"`
	}{
		Stats:    a.orch.Stats(),
		Settings: a.settings.Load(),
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.cleanup()

	a.orch.ClearAllData()
	fmt.Println("Cache and history cleared")
	return nil
}

// syncReport is the JSON shape printed after a sync run
type syncReport struct {
	Total     int          `json:"total"`
	Delivered int          `json:"delivered"`
	Failed    []syncError  `json:"failed,omitempty"`
	Events    []syncedItem `json:"events,omitempty"`
}

type syncedItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type syncError struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

func syncOutput(result *dispatch.Result) syncReport {
	report := syncReport{
		Total:     result.Total,
		Delivered: len(result.Success),
	}
	for _, item := range result.Success {
		report.Events = append(report.Events, syncedItem{
			ID:     item.Event.ID,
			Title:  item.Event.Title,
			Status: item.Result.Status,
		})
	}
	for _, failure := range result.Failed {
		report.Failed = append(report.Failed, syncError{
			ID:     failure.Event.ID,
			Title:  failure.Event.Title,
			Reason: failure.Err.Error(),
		})
	}
	return report
}

func writeJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Execute runs the CLI
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
