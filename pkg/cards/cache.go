// Package cards owns the rendered artifact lifecycle: a capacity-bounded
// LRU cache with fixed TTL, plus the serve and warm flows on top of it.
package cards

import (
	"container/list"
	"sync"
	"time"
)

// Key identifies one cached artifact. The style fingerprint folds the
// visual configuration into the key so a config change naturally misses
// and re-renders instead of patching entries in place.
type Key struct {
	UserID      int64
	CardType    string
	Variant     string
	Fingerprint string
}

type entry struct {
	key       Key
	artifact  []byte
	createdAt time.Time
}

func (e *entry) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.createdAt) >= ttl
}

// CacheStats tracks cache effectiveness counters.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// ArtifactCache combines a hash map for O(1) lookup with a doubly linked
// list for LRU ordering. Expiry is lazy: an expired entry is treated as
// absent on read and replaced on the next insert; no background sweeper
// is needed for correctness.
type ArtifactCache struct {
	mu         sync.Mutex
	data       map[Key]*list.Element
	lru        *list.List
	maxEntries int
	ttl        time.Duration
	stats      CacheStats

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewArtifactCache builds a cache bounded to maxEntries with the given
// TTL. A non-positive maxEntries disables the capacity bound; a
// non-positive ttl disables expiry.
func NewArtifactCache(maxEntries int, ttl time.Duration) *ArtifactCache {
	return &ArtifactCache{
		data:       make(map[Key]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached artifact for key if present and not expired.
// A hit refreshes the entry's LRU position.
func (c *ArtifactCache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.data[key]
	if !found {
		c.stats.Misses++
		return nil, false
	}

	e := elem.Value.(*entry)
	if e.expired(c.ttl, c.now()) {
		c.removeElement(elem)
		c.stats.Misses++
		return nil, false
	}

	c.lru.MoveToFront(elem)
	c.stats.Hits++
	return e.artifact, true
}

// Contains reports whether a fresh entry exists without touching LRU
// order. The warm flow uses it to skip already-warm combinations.
func (c *ArtifactCache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.data[key]
	if !found {
		return false
	}
	return !elem.Value.(*entry).expired(c.ttl, c.now())
}

// Put inserts an artifact. Entries are immutable: inserting over an
// existing key replaces the whole entry and restarts its TTL.
func (c *ArtifactCache) Put(key Key, artifact []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.data[key]; found {
		e := elem.Value.(*entry)
		e.artifact = artifact
		e.createdAt = c.now()
		c.lru.MoveToFront(elem)
		return
	}

	if c.maxEntries > 0 && c.lru.Len() >= c.maxEntries {
		c.evictOldest()
	}

	elem := c.lru.PushFront(&entry{
		key:       key,
		artifact:  artifact,
		createdAt: c.now(),
	})
	c.data[key] = elem
}

// Len returns the number of entries currently held, expired or not.
func (c *ArtifactCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the effectiveness counters.
func (c *ArtifactCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *ArtifactCache) evictOldest() {
	elem := c.lru.Back()
	if elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

func (c *ArtifactCache) removeElement(elem *list.Element) {
	c.lru.Remove(elem)
	delete(c.data, elem.Value.(*entry).key)
}
