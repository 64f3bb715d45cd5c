// Package cache provides a bounded LRU cache for hot session and
// artifact metadata.
//
// The cache is a pure read-path optimization: correctness of the
// surrounding code must hold identically whether the cache is cold,
// warm, or disabled (capacity 0). Write paths invalidate rather than
// update, so the cache never serves a value newer code has replaced.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity matches the hot-set size the system was tuned for.
const DefaultCapacity = 100

// Cache is a concurrency-safe LRU keyed by K. Capacity 0 disables
// caching entirely: every GetOrLoad invokes the loader.
type Cache[K comparable, V any] struct {
	lru *lru.Cache[K, V]

	// loadMu serializes loads per cache, not per key. Metadata loads
	// are single-digit microseconds against a warm store, so a finer
	// lock has not been worth the complexity.
	loadMu sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache holding at most capacity entries. capacity 0
// yields a pass-through cache; negative capacity is an error.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("cache capacity must be >= 0, got %d", capacity)
	}
	if capacity == 0 {
		return &Cache[K, V]{}, nil
	}

	inner, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache[K, V]{lru: inner}, nil
}

// Get returns the cached value for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	if c.lru == nil {
		var zero V
		return zero, false
	}
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// GetOrLoad returns the cached value for key or invokes loader and
// caches its result. A loader error is returned as-is and nothing is
// cached, so transient store failures do not poison the cache.
func (c *Cache[K, V]) GetOrLoad(key K, loader func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	if c.lru == nil {
		return loader()
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	// Another caller may have loaded it while we waited.
	if v, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}

	v, err := loader()
	if err != nil {
		var zero V
		return zero, err
	}
	c.lru.Add(key, v)
	return v, nil
}

// Put stores a value, evicting the least-recently-used entry on
// overflow.
func (c *Cache[K, V]) Put(key K, value V) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, value)
}

// Invalidate removes key from the cache.
func (c *Cache[K, V]) Invalidate(key K) {
	if c.lru == nil {
		return
	}
	c.lru.Remove(key)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// Stats reports hit/miss counters since creation.
func (c *Cache[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
