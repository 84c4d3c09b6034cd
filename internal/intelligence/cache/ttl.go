// Package cache holds the engine's per-space TTL maps, in-flight deduplication and the Redis tier.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a map whose entries expire a fixed duration after they were written.
// Expired entries are dropped lazily on read and on Set.
type TTL[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the clock. Used by tests.
func (c *TTL[V]) WithClock(now func() time.Time) *TTL[V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && !now.Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	c.sweepLocked(now)
}

func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeleteWhere removes every key matching pred and returns how many went.
func (c *TTL[V]) DeleteWhere(pred func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if pred(k) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *TTL[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len counts live entries.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// sweepLocked drops expired entries once the map has grown past a soft bound.
func (c *TTL[V]) sweepLocked(now time.Time) {
	if len(c.entries) < sweepThreshold {
		return
	}
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

const sweepThreshold = 1024
