// Package dispatch pushes scraped events to a calendar sink in rate-
// limited batches.
package dispatch

import (
	"context"
	"sync"
	"time"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/logger"
	apperrors "pogocal/eventworker/pkg/errors"
	"pogocal/eventworker/services/sink"
)

const (
	// DefaultBatchSize bounds concurrent calendar requests per batch
	DefaultBatchSize = 5

	// DefaultBatchPause spaces batches apart to stay under rate limits
	DefaultBatchPause = time.Second
)

// ItemSuccess records one delivered event and the sink's acknowledgement
type ItemSuccess struct {
	Event  event.Event  `json:"event"`
	Result *sink.Result `json:"result"`
}

// ItemFailure records one event the sink refused
type ItemFailure struct {
	Event event.Event `json:"event"`
	Err   error       `json:"-"`
}

// Result summarizes a sync run. Total always equals
// len(Success) + len(Failed).
type Result struct {
	Total   int           `json:"total"`
	Success []ItemSuccess `json:"success"`
	Failed  []ItemFailure `json:"failed"`
}

// Dispatcher delivers events through a sink in fixed-size batches with a
// pause between batches. Failures are collected per event, never fatal
// to the run.
type Dispatcher struct {
	sink      sink.Sink
	batchSize int
	pause     time.Duration
	log       *logger.Logger
}

// NewDispatcher creates a dispatcher. Non-positive batchSize or pause
// fall back to the defaults.
func NewDispatcher(s sink.Sink, batchSize int, pause time.Duration) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if pause <= 0 {
		pause = DefaultBatchPause
	}
	return &Dispatcher{
		sink:      s,
		batchSize: batchSize,
		pause:     pause,
		log:       logger.ForDispatcher(),
	}
}

// Sync delivers all events through the sink. Each batch runs its
// dispatches concurrently and joins before the next batch starts. A
// cancelled context marks every undelivered event as failed and returns
// what was accomplished so far.
func (d *Dispatcher) Sync(ctx context.Context, events []event.Event) (*Result, error) {
	if len(events) == 0 {
		return nil, apperrors.NewValidation("no events to sync")
	}

	batches := partition(events, d.batchSize)
	d.log.Info().
		Str("sink", d.sink.Name()).
		Int("events", len(events)).
		Int("batches", len(batches)).
		Msg("Starting calendar sync")

	result := &Result{Total: len(events)}
	var mu sync.Mutex

	for i := 0; i < len(batches); i++ {
		if err := ctx.Err(); err != nil {
			d.failRemaining(result, batches[i:], err)
			break
		}

		var wg sync.WaitGroup
		for _, ev := range batches[i] {
			wg.Add(1)
			go func(ev event.Event) {
				defer wg.Done()
				res, err := d.sink.Dispatch(ctx, ev)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					d.log.Warn().Err(err).Str("event", ev.ID).Msg("Event delivery failed")
					result.Failed = append(result.Failed, ItemFailure{Event: ev, Err: err})
					return
				}
				result.Success = append(result.Success, ItemSuccess{Event: ev, Result: res})
			}(ev)
		}
		wg.Wait()

		if i == len(batches)-1 {
			break
		}
		select {
		case <-time.After(d.pause):
		case <-ctx.Done():
			d.failRemaining(result, batches[i+1:], ctx.Err())
			i = len(batches)
		}
	}

	d.log.Info().
		Int("delivered", len(result.Success)).
		Int("failed", len(result.Failed)).
		Msg("Calendar sync finished")
	return result, nil
}

// failRemaining marks every event in the given batches as failed with err
func (d *Dispatcher) failRemaining(result *Result, batches [][]event.Event, err error) {
	for _, batch := range batches {
		for _, ev := range batch {
			result.Failed = append(result.Failed, ItemFailure{Event: ev, Err: err})
		}
	}
}

// partition splits events into order-preserving chunks of at most size
func partition(events []event.Event, size int) [][]event.Event {
	batches := make([][]event.Event, 0, (len(events)+size-1)/size)
	for start := 0; start < len(events); start += size {
		end := start + size
		if end > len(events) {
			end = len(events)
		}
		batches = append(batches, events[start:end])
	}
	return batches
}
