package cache

import (
	"time"

	"github.com/klappy/translation-helps-core/errors"
)

// Cache is the interface satisfied by cache implementations in this package.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the zero value and false on a
	// miss or an expired entry.
	Get(key string) (V, bool)

	// Set stores a value under the cache's default TTL. Returns true if a
	// new entry was created, false if an existing one was replaced.
	Set(key string, value V) (bool, error)

	// SetWithTTL stores a value with an entry-specific TTL.
	SetWithTTL(key string, value V, ttl time.Duration) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries.
	Size() int

	// Keys returns all unexpired keys.
	Keys() []string

	// Stats returns cache statistics. Never nil.
	Stats() *Statistics

	// Close stops the background janitor and releases resources.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey rejects keys the cache cannot store.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "empty key")
	}
	return nil
}
