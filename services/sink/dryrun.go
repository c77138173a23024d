package sink

import (
	"context"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/logger"
)

// DryRunSink logs each event instead of delivering it. Used by the CLI
// when no calendar endpoint is configured or --dry-run is set.
type DryRunSink struct {
	log *logger.Logger
}

func NewDryRunSink() *DryRunSink {
	return &DryRunSink{log: logger.ForSink()}
}

func (s *DryRunSink) Name() string { return "dry-run" }

func (s *DryRunSink) Dispatch(_ context.Context, ev event.Event) (*Result, error) {
	s.log.Info().
		Str("id", ev.ID).
		Str("title", ev.Title).
		Time("start", ev.StartDate).
		Msg("Dry run, event not delivered")
	return &Result{ID: ev.ID, Status: "dry-run"}, nil
}
