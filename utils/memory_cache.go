package utils

import (
	"sync"
	"time"
)

// CacheItem represents a cached item with expiration
type CacheItem[V any] struct {
	Value      V
	Expiration time.Time
}

// MemoryCache provides in-memory caching with expiration
type MemoryCache[K comparable, V any] struct {
	items map[K]*CacheItem[V]
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a cache whose entries live for ttl. A background
// goroutine removes expired entries until Close is called.
func NewMemoryCache[K comparable, V any](ttl time.Duration) *MemoryCache[K, V] {
	cache := &MemoryCache[K, V]{
		items: make(map[K]*CacheItem[V]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// Set stores a value in cache
func (c *MemoryCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem[V]{
		Value:      value,
		Expiration: c.now().Add(c.ttl),
	}
}

// Get retrieves a value from cache
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || c.now().After(item.Expiration) {
		var zero V
		return zero, false
	}
	return item.Value, true
}

// Delete removes an item from cache
func (c *MemoryCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes all items from cache
func (c *MemoryCache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]*CacheItem[V])
	c.mu.Unlock()
}

// Size returns the number of items in cache, expired ones included until cleanup
func (c *MemoryCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine
func (c *MemoryCache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupLoop periodically removes expired items
func (c *MemoryCache[K, V]) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired items
func (c *MemoryCache[K, V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.Expiration) {
			delete(c.items, key)
		}
	}
}
