package kvstore

import "errors"

var (
	// ErrNoKey is returned by GetItem when the key is absent
	ErrNoKey = errors.New("kvstore: key not found")

	// ErrScanUnsupported is returned by Keys on backends that cannot
	// enumerate their keys (memcache)
	ErrScanUnsupported = errors.New("kvstore: key scan not supported")
)

// Store is a generic string key-value store. The cache, history and
// settings stores layer JSON encoding on top of it under fixed key
// prefixes, so swapping the backend never changes the persisted layout.
type Store interface {
	// GetItem retrieves the value for key, or ErrNoKey
	GetItem(key string) (string, error)

	// SetItem stores value under key, overwriting any existing entry
	SetItem(key, value string) error

	// RemoveItem deletes key; removing an absent key is not an error
	RemoveItem(key string) error

	// Keys lists all keys starting with prefix
	Keys(prefix string) ([]string, error)
}
