// Package cache provides the time-bounded cache used in front of the
// external search sources.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultTTL  = 5 * time.Minute
	DefaultSize = 500
)

// Cache stores values by key for a fixed time-to-live. Implementations are
// optimizations only; a miss must always be recoverable by recomputation.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a bounded LRU whose entries expire TTL after they were set.
type TTL[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry[V]]
	ttl time.Duration
	now func() time.Time
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewTTL creates a cache holding at most size entries for ttl each.
func NewTTL[V any](size int, ttl time.Duration, opts ...Option) (*TTL[V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	l, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTL[V]{lru: l, ttl: ttl, now: o.now}, nil
}

// Get returns the value for key while it is fresh. An expired entry is
// evicted and reported as a miss.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key until now+TTL.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Len reports the number of stored entries, expired ones included.
func (c *TTL[V]) Len() int {
	return c.lru.Len()
}

// Nop never stores anything. Useful to disable caching in tests.
type Nop[V any] struct{}

func (Nop[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

func (Nop[V]) Set(string, V) {}
