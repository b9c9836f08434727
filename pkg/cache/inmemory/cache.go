// Package inmemory implements the cache interface on top of
// patrickmn/go-cache. It is a drop-in alternative to the redis driver for
// tests and local runs; sorted sets and counters are kept in auxiliary
// structures guarded by a mutex.
package inmemory

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/anicards-project/anicards/pkg/cache"
)

// Config holds the in-memory driver settings. Values are in seconds; a
// negative DefaultExpiration disables expiry and a negative
// CleanupInterval disables the background janitor.
type Config struct {
	DefaultExpiration int
	CleanupInterval   int
}

type sortedSet struct {
	scores map[string]float64
	// order preserves first-seen position so equal scores rank by
	// discovery order.
	order []string
}

// InMemoryCache implements cache.Cache without external dependencies.
type InMemoryCache struct {
	store *gocache.Cache

	mu   sync.Mutex
	sets map[string]*sortedSet
}

var _ cache.Cache = (*InMemoryCache)(nil)

// NewCache inits an InMemoryCache instance.
func NewCache(config *Config) (*InMemoryCache, error) {
	if config == nil {
		config = &Config{DefaultExpiration: -1, CleanupInterval: -1}
	}

	defaultExpiration := gocache.NoExpiration
	if config.DefaultExpiration > 0 {
		defaultExpiration = time.Duration(config.DefaultExpiration) * time.Second
	}

	cleanupInterval := time.Duration(0)
	if config.CleanupInterval > 0 {
		cleanupInterval = time.Duration(config.CleanupInterval) * time.Second
	}

	return &InMemoryCache{
		store: gocache.New(defaultExpiration, cleanupInterval),
		sets:  make(map[string]*sortedSet),
	}, nil
}

// Get returns the value for key or cache.ErrCacheMiss.
func (c *InMemoryCache) Get(_ context.Context, key string) (string, error) {
	val, found := c.store.Get(key)
	if !found {
		return "", cache.ErrCacheMiss
	}
	s, ok := val.(string)
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return s, nil
}

// Set stores a key value pair. A non-positive ttl means no expiry.
func (c *InMemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, value, ttl)
	return nil
}

// Delete removes the given keys, ignoring missing ones.
func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.store.Delete(key)
	}
	return nil
}

// Keys returns all keys matching the glob pattern.
func (c *InMemoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for key := range c.store.Items() {
		if matched, err := path.Match(pattern, key); err != nil {
			return nil, err
		} else if matched {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// MGet returns the values for the given keys, omitting absent ones.
func (c *InMemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, found := c.store.Get(key); found {
			if s, ok := val.(string); ok {
				values[key] = s
			}
		}
	}
	return values, nil
}

// Increment adds 1 to the integer at key, creating it at 1 when absent.
// The mutex makes the read-parse-write sequence atomic for concurrent
// callers, matching redis INCR semantics.
func (c *InMemoryCache) Increment(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current int64
	if val, found := c.store.Get(key); found {
		if s, ok := val.(string); ok {
			parsed, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return 0, err
			}
			current = parsed
		}
	}

	current++
	c.store.Set(key, strconv.FormatInt(current, 10), gocache.NoExpiration)
	return current, nil
}

// SortedSetIncr bumps member's score in the sorted set at key.
func (c *InMemoryCache) SortedSetIncr(_ context.Context, key, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, found := c.sets[key]
	if !found {
		set = &sortedSet{scores: make(map[string]float64)}
		c.sets[key] = set
	}
	if _, seen := set.scores[member]; !seen {
		set.order = append(set.order, member)
	}
	set.scores[member]++
	return nil
}

// SortedSetTopN returns up to n members ordered by descending score.
// Equal scores keep discovery order.
func (c *InMemoryCache) SortedSetTopN(_ context.Context, key string, n int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, found := c.sets[key]
	if !found || n <= 0 {
		return nil, nil
	}

	members := make([]string, len(set.order))
	copy(members, set.order)
	sort.SliceStable(members, func(i, j int) bool {
		return set.scores[members[i]] > set.scores[members[j]]
	})

	if int64(len(members)) > n {
		members = members[:n]
	}
	return members, nil
}

// Disconnect flushes the in-memory state.
func (c *InMemoryCache) Disconnect() error {
	c.store.Flush()
	c.mu.Lock()
	c.sets = make(map[string]*sortedSet)
	c.mu.Unlock()
	return nil
}
