package kvstore

import (
	"errors"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheStore implements Store using memcache. Memcache cannot enumerate
// its keys, so Keys reports ErrScanUnsupported and callers that sweep must
// degrade; entries still expire server-side.
type MemcacheStore struct {
	client *memcache.Client
}

// NewMemcacheStore creates a new memcache-backed store
func NewMemcacheStore(serverAddr string) *MemcacheStore {
	return &MemcacheStore{
		client: memcache.New(serverAddr),
	}
}

// GetItem retrieves a value from memcache
func (m *MemcacheStore) GetItem(key string) (string, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", ErrNoKey
	}
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

// SetItem stores a value in memcache
func (m *MemcacheStore) SetItem(key, value string) error {
	return m.client.Set(&memcache.Item{
		Key:   key,
		Value: []byte(value),
	})
}

// RemoveItem deletes a value from memcache
func (m *MemcacheStore) RemoveItem(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Keys is not supported by memcache
func (m *MemcacheStore) Keys(prefix string) ([]string, error) {
	return nil, ErrScanUnsupported
}
