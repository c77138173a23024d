package scraper

import (
	"sync"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/logger"
)

// Signal identifies a lifecycle notification from the orchestrator
type Signal string

const (
	SignalScrapeStarted Signal = "scrapingStarted"
	SignalEventsLoaded  Signal = "eventsLoaded"
	SignalNewEvents     Signal = "newEventsFound"
	SignalScrapeError   Signal = "scrapingError"
)

// Payload carries the data attached to a signal
type Payload struct {
	Source string
	Events []event.Event
	Err    error
}

// Listener receives a signal payload
type Listener func(Payload)

// Hub is a minimal observer registry. Emit delivers to every listener in
// turn; a panicking listener is recovered and logged so the others still
// run.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[Signal]map[int]Listener
	log       *logger.Logger
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[Signal]map[int]Listener),
		log:       logger.ForScraper(),
	}
}

// Subscribe registers fn for sig and returns an unsubscribe handle.
// Unsubscribing twice is harmless.
func (h *Hub) Subscribe(sig Signal, fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listeners[sig] == nil {
		h.listeners[sig] = make(map[int]Listener)
	}
	id := h.nextID
	h.nextID++
	h.listeners[sig][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners[sig], id)
	}
}

// Emit delivers payload to every listener registered for sig
func (h *Hub) Emit(sig Signal, payload Payload) {
	h.mu.Lock()
	fns := make([]Listener, 0, len(h.listeners[sig]))
	for _, fn := range h.listeners[sig] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		h.call(sig, fn, payload)
	}
}

func (h *Hub) call(sig Signal, fn Listener, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Str("signal", string(sig)).
				Interface("panic", r).
				Msg("Listener panicked")
		}
	}()
	fn(payload)
}
