package cache

import (
	"sync"
)

// TypeCache caches values derived from a type key (block type, entity class).
// Entries are never evicted: keys come from a small bounded set of types, not positions.
type TypeCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

func NewTypeCache[K comparable, V any]() *TypeCache[K, V] {
	return &TypeCache[K, V]{
		entries: make(map[K]V),
	}
}

// Get retrieves a cached value
func (c *TypeCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrCompute returns the cached value for key, computing and storing it on a miss.
// compute runs outside the lock; if two callers race, the first stored value wins
// so a key is never re-derived once cached.
func (c *TypeCache[K, V]) GetOrCompute(key K, compute func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = v
	return v
}

func (c *TypeCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

