package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a small key/value store with per-entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
}

type ttlCache[K comparable, V any] struct {
	items *ttlcache.Cache[K, V]
}

// NewTTLCache returns an in-process Cache. A hit does not extend an entry's
// lifetime, and a ttl of zero keeps the entry until it is deleted.
func NewTTLCache[K comparable, V any]() Cache[K, V] {
	return &ttlCache[K, V]{
		items: ttlcache.New[K, V](ttlcache.WithDisableTouchOnHit[K, V]()),
	}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	item := c.items.Get(key)
	if item == nil {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c.items.Set(key, value, ttl)
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.items.Delete(key)
}
