// Package cache provides a generic, thread-safe, time-aware cache.
//
// Entries remember when they were stored so callers can judge freshness
// against their own policy, while the cache itself evicts entries once their
// retention TTL has passed or the optional entry bound is exceeded.
// Statistics are always collected; Prometheus export is opt-in via WithMetrics.
package cache

import (
	"strings"
	"time"

	"github.com/c360/campaignpulse/errors"
)

// Cache represents a generic cache interface parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves an entry by key. Expired entries are reported as misses.
	Get(key string) (Entry[V], bool)

	// Set stores a value with the given key. Returns true if a new entry was created, false if updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed and was deleted.
	Delete(key string) (bool, error)

	// DeletePrefix removes every entry whose key starts with prefix and returns how many were removed.
	DeletePrefix(prefix string) int

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all live keys.
	Keys() []string

	// Stats returns cache statistics, nil for a disabled cache.
	Stats() *Statistics

	// Close stops background cleanup.
	Close() error
}

// EvictCallback is called when an entry leaves the cache by expiry, bound or deletion.
type EvictCallback[V any] func(key string, value V)

// Entry is a cached value with its storage time.
type Entry[V any] struct {
	Key       string
	Value     V
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Age returns how long ago the entry was stored.
func (e Entry[V]) Age() time.Duration {
	return time.Since(e.StoredAt)
}

// IsStale reports whether the entry is older than the given freshness window.
// A non-positive window means the entry is always stale.
func (e Entry[V]) IsStale(after time.Duration) bool {
	if after <= 0 {
		return true
	}
	return e.Age() >= after
}

// isExpired checks if the entry has passed its retention time.
func (e *Entry[V]) isExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
