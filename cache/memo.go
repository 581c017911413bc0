// Package cache provides a thread-safe memoizing cache.
//
// Unlike an LRU, entries are never evicted: callers hold on to the cached
// values (compiled GPU programs) by identity, so eviction would silently
// fork a second copy of a live resource. The cache grows with the number of
// distinct keys and is emptied only by an explicit Clear.
package cache

import (
	"sync"
	"sync/atomic"
)

// Cache is a thread-safe memoizing map from K to V.
//
// The zero value is not usable; create instances with New.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V

	// Statistics (atomic for zero-allocation reads)
	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats holds cache statistics.
type Stats struct {
	Len     int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]V),
	}
}

// Get retrieves a cached value by key.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// GetOrCreate returns the cached value for key, calling create to build it
// on first use. Concurrent callers with the same key get the same value;
// create runs at most once per key unless it fails.
//
// The create function is called with the lock held to prevent duplicate
// computation. If it returns an error, nothing is cached and the error is
// passed through.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return value, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check after acquiring write lock
	if value, ok := c.entries[key]; ok {
		c.hits.Add(1)
		return value, nil
	}

	c.misses.Add(1)
	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = value
	return value, nil
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Clear removes all entries, calling release (if non-nil) on each value so
// callers can free the resources behind them.
func (c *Cache[K, V]) Clear(release func(V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if release != nil {
		for _, v := range c.entries {
			release(v)
		}
	}
	c.entries = make(map[K]V)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns current cache statistics.
// This operation is mostly lock-free (atomic counters).
func (c *Cache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Len:     c.Len(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// ResetStats resets all statistics counters to zero.
func (c *Cache[K, V]) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
}
