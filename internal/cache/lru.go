package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruItem[V any] struct {
	value     V
	expiresAt time.Time
}

// LRU is an in-process, size bounded cache whose entries expire after a TTL.
type LRU[V any] struct {
	entries *lru.Cache[string, lruItem[V]]
	ttl     time.Duration
	now     func() time.Time
}

// NewLRU creates an LRU holding up to size entries
func NewLRU[V any](size int, ttl time.Duration) (*LRU[V], error) {
	entries, err := lru.New[string, lruItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &LRU[V]{entries: entries, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value if present and not expired
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V
	item, ok := c.entries.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.entries.Remove(key)
		return zero, false
	}
	return item.value, true
}

// Set stores value under key
func (c *LRU[V]) Set(key string, value V) {
	c.entries.Add(key, lruItem[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Delete removes key
func (c *LRU[V]) Delete(key string) {
	c.entries.Remove(key)
}

