// Package cache provides a small keyed cache with a fixed time to live.
package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL caches values for a fixed duration after they are set. It is safe for
// concurrent use. Expired entries are dropped on the next Get of their key.
type TTL[V any] struct {
	ttl   time.Duration
	clock Clock

	mu    sync.Mutex
	items map[string]entry[V]
}

// NewTTL returns a cache whose entries live for ttl. A nil clock uses time.Now.
func NewTTL[V any](ttl time.Duration, clock Clock) *TTL[V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTL[V]{ttl: ttl, clock: clock, items: make(map[string]entry[V])}
}

// Get returns the value under key if it has not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock().Before(e.expires) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores v under key, replacing any previous value.
func (c *TTL[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: v, expires: c.clock().Add(c.ttl)}
}

// Invalidate drops key.
func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// TTL reports the configured time to live.
func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}
