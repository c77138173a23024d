package store

import (
	"encoding/json"
	"errors"
	"time"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/logger"
	"pogocal/eventworker/services/kvstore"
)

const (
	// HistoryPrefix is the key prefix for the event history
	HistoryPrefix = "pogo_history_"

	// DefaultHistorySize caps the history log
	DefaultHistorySize = 100

	historyKey = "events"
)

// HistoryRecord is a canonical event plus the instant it entered history
type HistoryRecord struct {
	event.Event
	AddedAt time.Time `json:"addedAt"`
}

// historyDoc is the persisted shape of the history log
type historyDoc struct {
	Data []HistoryRecord `json:"data"`
}

// HistoryStats summarizes the history contents
type HistoryStats struct {
	TotalEvents int            `json:"totalEvents"`
	OldestAdded *time.Time     `json:"oldestAdded,omitempty"`
	NewestAdded *time.Time     `json:"newestAdded,omitempty"`
	ByCategory  map[string]int `json:"byCategory"`
}

// History is a bounded, deduplicated append-only log of previously seen
// events. Eviction on overflow is strict FIFO by insertion order; the
// events' own dates play no part.
type History struct {
	kv      kvstore.Store
	prefix  string
	maxSize int
	log     *logger.Logger
	now     func() time.Time
}

// NewHistory creates a history log over kv, capped at maxSize records
func NewHistory(kv kvstore.Store, prefix string, maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		kv:      kv,
		prefix:  prefix,
		maxSize: maxSize,
		log:     logger.ForStore(),
		now:     time.Now,
	}
}

// Add appends an event unless one with the same id is already present.
// When the log is at capacity the oldest-added record is evicted first.
// Returns false on duplicates and on storage failure.
func (h *History) Add(ev event.Event) bool {
	records := h.load()

	for _, r := range records {
		if r.ID == ev.ID {
			return false
		}
	}

	records = append([]HistoryRecord{{Event: ev, AddedAt: h.now()}}, records...)
	if len(records) > h.maxSize {
		// the list is newest-first, so the tail is the oldest insertion
		records = records[:h.maxSize]
	}

	return h.save(records)
}

// Contains reports whether an event id is present
func (h *History) Contains(id string) bool {
	for _, r := range h.load() {
		if r.ID == id {
			return true
		}
	}
	return false
}

// IDSet returns the set of event ids currently in history
func (h *History) IDSet() map[string]struct{} {
	records := h.load()
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.ID] = struct{}{}
	}
	return ids
}

// List returns all records, most recently added first
func (h *History) List() []HistoryRecord {
	return h.load()
}

// Clear empties the history
func (h *History) Clear() bool {
	return h.save(nil)
}

// Stats summarizes the current history contents
func (h *History) Stats() HistoryStats {
	records := h.load()
	stats := HistoryStats{
		TotalEvents: len(records),
		ByCategory:  make(map[string]int),
	}

	if len(records) > 0 {
		newest := records[0].AddedAt
		oldest := records[len(records)-1].AddedAt
		stats.NewestAdded = &newest
		stats.OldestAdded = &oldest
	}
	for _, r := range records {
		category := string(r.Category)
		if category == "" {
			category = string(event.CategoryOther)
		}
		stats.ByCategory[category]++
	}
	return stats
}

func (h *History) load() []HistoryRecord {
	raw, err := h.kv.GetItem(h.prefix + historyKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNoKey) {
			h.log.Warn().Err(err).Msg("History read failed")
		}
		return nil
	}

	var doc historyDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		h.log.Warn().Err(err).Msg("Discarding corrupt history payload")
		return nil
	}
	return doc.Data
}

func (h *History) save(records []HistoryRecord) bool {
	data, err := json.Marshal(historyDoc{Data: records})
	if err != nil {
		return false
	}
	if err := h.kv.SetItem(h.prefix+historyKey, string(data)); err != nil {
		h.log.Warn().Err(err).Msg("History write failed")
		return false
	}
	return true
}
