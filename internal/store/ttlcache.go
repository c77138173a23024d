package store

import (
	"encoding/json"
	"errors"
	"time"

	"pogocal/eventworker/logger"
	"pogocal/eventworker/services/kvstore"
)

// CachePrefix is the key prefix for scrape cache entries
const CachePrefix = "pogo_cache_"

// envelope is the persisted shape of a cache entry
type envelope struct {
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"storedAt"`
	TTL      time.Duration   `json:"ttl"`
	Expires  time.Time       `json:"expires"`
}

// StorageInfo describes what a store currently holds
type StorageInfo struct {
	Supported bool `json:"supported"`
	Keys      int  `json:"keys"`
	TotalSize int  `json:"totalSize"`
}

// Cache is a TTL cache over a key-value store. Values are JSON encoded in
// an envelope carrying the expiry instant; reads past the expiry evict the
// entry and report a miss. Storage failures degrade to miss/false, they
// never escape the cache layer.
type Cache[T any] struct {
	kv     kvstore.Store
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

// NewCache creates a cache on top of kv under the given key prefix
func NewCache[T any](kv kvstore.Store, prefix string) *Cache[T] {
	return &Cache[T]{
		kv:     kv,
		prefix: prefix,
		log:    logger.ForStore(),
		now:    time.Now,
	}
}

// Set stores value under key with the given time to live, overwriting any
// existing entry. Returns false when the backend rejected the write.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("Failed to encode cache value")
		return false
	}

	now := c.now()
	entry, err := json.Marshal(envelope{
		Data:     data,
		StoredAt: now,
		TTL:      ttl,
		Expires:  now.Add(ttl),
	})
	if err != nil {
		return false
	}

	if err := c.kv.SetItem(c.prefix+key, string(entry)); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		return false
	}
	return true
}

// Get retrieves a live value. Absent, expired and corrupt entries all
// report a miss; expired and corrupt entries are evicted as a side effect.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T

	raw, err := c.kv.GetItem(c.prefix + key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNoKey) {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return zero, false
	}

	var entry envelope
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.evict(key)
		return zero, false
	}

	if c.now().After(entry.Expires) {
		c.evict(key)
		return zero, false
	}

	var value T
	if err := json.Unmarshal(entry.Data, &value); err != nil {
		c.evict(key)
		return zero, false
	}
	return value, true
}

// Remove deletes an entry regardless of expiry
func (c *Cache[T]) Remove(key string) {
	c.evict(key)
}

func (c *Cache[T]) evict(key string) {
	if err := c.kv.RemoveItem(c.prefix + key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache eviction failed")
	}
}

// Sweep scans the prefix and evicts every expired or corrupt entry,
// returning the count evicted. Backends that cannot enumerate keys sweep
// nothing; Get self-heals there.
func (c *Cache[T]) Sweep() int {
	keys, err := c.kv.Keys(c.prefix)
	if err != nil {
		if !errors.Is(err, kvstore.ErrScanUnsupported) {
			c.log.Warn().Err(err).Msg("Cache sweep failed")
		}
		return 0
	}

	now := c.now()
	evicted := 0
	for _, key := range keys {
		raw, err := c.kv.GetItem(key)
		if err != nil {
			continue
		}

		var entry envelope
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || now.After(entry.Expires) {
			if err := c.kv.RemoveItem(key); err == nil {
				evicted++
			}
		}
	}
	return evicted
}

// Clear removes every entry under the prefix
func (c *Cache[T]) Clear() {
	keys, err := c.kv.Keys(c.prefix)
	if err != nil {
		return
	}
	for _, key := range keys {
		_ = c.kv.RemoveItem(key)
	}
}

// Info reports key count and total byte size under the prefix
func (c *Cache[T]) Info() StorageInfo {
	keys, err := c.kv.Keys(c.prefix)
	if err != nil {
		return StorageInfo{Supported: false}
	}

	info := StorageInfo{Supported: true, Keys: len(keys)}
	for _, key := range keys {
		if raw, err := c.kv.GetItem(key); err == nil {
			info.TotalSize += len(key) + len(raw)
		}
	}
	return info
}
