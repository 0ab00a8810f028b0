// Package quotecache is a short-lived in-process memo of upstream responses.
package quotecache

import (
	"sync"
	"time"

	"marketcache-api/pkg/market"
)

// Key builds the cache key for a symbol of the given class, e.g. "stock_AAPL".
func Key(kind market.AssetKind, symbol string) string {
	return string(kind) + "_" + symbol
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache maps keys to values that expire a fixed TTL after insertion.
type Cache[V any] struct {
	ttl      time.Duration
	maxItems int
	now      func() time.Time

	mu    sync.RWMutex
	items map[string]entry[V]
}

// Option customises a Cache.
type Option func(*options)

type options struct {
	maxItems int
	now      func() time.Time
}

// WithMaxItems caps the number of live entries. Zero means unbounded.
func WithMaxItems(n int) Option {
	return func(o *options) { o.maxItems = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs a cache whose entries live for ttl.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		ttl:      ttl,
		maxItems: o.maxItems,
		now:      o.now,
		items:    make(map[string]entry[V]),
	}
}

// Get returns the value for key if present and unexpired. A nil cache always misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil || c.ttl <= 0 {
		return zero, false
	}
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.items[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[V]) Set(key string, value V) {
	if c == nil || c.ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	if c.maxItems > 0 && len(c.items) > c.maxItems {
		c.evictLocked(now)
	}
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, including expired ones not yet evicted.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictLocked drops expired entries first, then the entries closest to expiry.
func (c *Cache[V]) evictLocked(now time.Time) {
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
	for len(c.items) > c.maxItems {
		var (
			oldestKey string
			oldest    time.Time
		)
		for k, e := range c.items {
			if oldestKey == "" || e.expiresAt.Before(oldest) {
				oldestKey, oldest = k, e.expiresAt
			}
		}
		delete(c.items, oldestKey)
	}
}
