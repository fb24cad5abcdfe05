// Package cache provides a small in-process TTL cache used to dampen
// duplicate reads of slow-changing upstream resources. Contents are pure
// optimization: a stale or missing entry only costs an extra round trip.
package cache

import (
	"sync"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a mutex-guarded map with per-entry expiry and a size cap. When the
// cap is reached the entry closest to expiry is evicted.
type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	maxSize int
}

func NewTTL[V any](maxSize int) *TTL[V] {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		maxSize: maxSize,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || NowTimeFunc().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: NowTimeFunc().Add(ttl)}
}

// GetOrFill returns the cached value for key, calling fill on a miss and
// caching its result. A fill error is returned without caching anything.
func (c *TTL[V]) GetOrFill(key string, ttl time.Duration, fill func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fill()
	if err != nil {
		return v, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Len reports the number of entries, expired ones included.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries, then the entry closest to expiry if the
// map is still full.
func (c *TTL[V]) evictLocked() {
	now := NowTimeFunc()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = k
			oldest = e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
