package cache

import (
	"sync"
	"time"
)

// Cache is a small keyed store with per-entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-memory Cache. Expired entries are dropped lazily on read
// and swept whenever the cache grows past maxEntries.
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	maxEntries int
	now        func() time.Time
}

const defaultMaxEntries = 512

func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return NewTTLCacheWithClock[K, V](defaultMaxEntries, time.Now)
}

func NewTTLCacheWithClock[K comparable, V any](maxEntries int, now func() time.Time) *TTLCache[K, V] {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache[K, V]{
		entries:    make(map[K]entry[V]),
		maxEntries: maxEntries,
		now:        now,
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return item.value, true
}

// Set stores value until ttl elapses. A non-positive ttl never expires.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
	if len(c.entries) > c.maxEntries {
		c.sweepLocked()
	}
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked drops expired entries, then the soonest-expiring ones until
// the cache is back under its bound.
func (c *TTLCache[K, V]) sweepLocked() {
	now := c.now()
	for key, item := range c.entries {
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(c.entries, key)
		}
	}
	for len(c.entries) > c.maxEntries {
		var (
			victim K
			found  bool
			oldest time.Time
		)
		for key, item := range c.entries {
			if !found || (!item.expiresAt.IsZero() && (oldest.IsZero() || item.expiresAt.Before(oldest))) {
				victim, oldest, found = key, item.expiresAt, true
			}
		}
		if !found {
			return
		}
		delete(c.entries, victim)
	}
}
