// Package cache defines the driver-neutral persistence interface shared
// by the redis and in-memory implementations. The store layer is the only
// intended consumer; it owns key prefixing and serialization.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist or has
// expired. Drivers must map their native miss signal to this error.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is the minimal persistence surface the store layer needs.
//
// Keys and MGet exist for the bounded enumeration the refresh cycle
// performs; Increment backs the per-user failure counter and must be
// atomic with respect to concurrent callers; the sorted set operations
// back the popularity index.
type Cache interface {
	// Get returns the value for key, or ErrCacheMiss when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key value pair. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Keys returns all keys matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// MGet returns the values for the given keys. Absent keys are
	// omitted from the result map.
	MGet(ctx context.Context, keys ...string) (map[string]string, error)

	// Increment atomically adds 1 to the integer stored at key,
	// creating it at 1 when absent, and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)

	// SortedSetIncr adds 1 to member's score in the sorted set at key,
	// creating the member at score 1 when absent.
	SortedSetIncr(ctx context.Context, key, member string) error

	// SortedSetTopN returns up to n members of the sorted set at key
	// ordered by descending score.
	SortedSetTopN(ctx context.Context, key string, n int64) ([]string, error)

	// Disconnect releases the underlying driver resources.
	Disconnect() error
}
