package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTL is a bounded cache whose entries expire after a fixed duration
type TTL[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

func NewTTL[K comparable, V any](capacity int, ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{lru: expirable.NewLRU[K, V](capacity, nil, ttl)}
}

func (c *TTL[K, V]) Get(key K) (V, bool) { return c.lru.Get(key) }

func (c *TTL[K, V]) Add(key K, value V) { c.lru.Add(key, value) }

func (c *TTL[K, V]) Remove(key K) { c.lru.Remove(key) }

func (c *TTL[K, V]) Len() int { return c.lru.Len() }

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached.
func (c *TTL[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.lru.Add(key, v)
	return v, nil
}
