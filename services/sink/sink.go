// Package sink delivers canonical events to an external calendar.
package sink

import (
	"context"

	"pogocal/eventworker/internal/event"
)

// Result is the sink's acknowledgement for one delivered event
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Sink dispatches a single event to a calendar backend
type Sink interface {
	Dispatch(ctx context.Context, ev event.Event) (*Result, error)
	Name() string
}
