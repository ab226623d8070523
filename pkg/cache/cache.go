// Package cache provides a keyed value cache with single-flight refresh and
// expiry after last access.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the default time a value stays cached after its last access
const DefaultTTL = 5 * time.Minute

// FetchFunc loads the value for a key
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Config configures a Cache
type Config struct {
	// Name identifies the cache in log output
	Name string
	TTL  time.Duration
	// Now returns the current time. Tests replace it to control expiry.
	Now    func() time.Time
	Logger *slog.Logger
}

type entry[V any] struct {
	value      V
	lastAccess atomic.Int64
}

func (e *entry[V]) touch(now time.Time) {
	e.lastAccess.Store(now.UnixNano())
}

func (e *entry[V]) fresh(now time.Time, ttl time.Duration) bool {
	return now.UnixNano()-e.lastAccess.Load() < int64(ttl)
}

// Cache holds values by string key. Fresh values are served to any number
// of concurrent readers. When a value is missing or expired exactly one
// fetch runs per key and every concurrent caller receives its result or
// its error. Errors are never cached.
type Cache[V any] struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry[V]
	group   singleflight.Group

	fetches atomic.Int64
}

// New creates a cache
func New[V any](cfg Config) *Cache[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name != "" {
		logger = logger.With("cache", cfg.Name)
	}

	return &Cache[V]{
		ttl:     cfg.TTL,
		now:     cfg.Now,
		logger:  logger,
		entries: make(map[string]*entry[V]),
	}
}

// Get returns the cached value for key or loads it with fetch.
//
// The shared fetch is detached from the cancellation of the caller that
// started it, so one caller giving up does not fail the others. Each caller
// still stops waiting when its own ctx is done.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// a flight that finished just before this one may have stored a value
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		c.fetches.Add(1)
		c.logger.Debug("Fetching value", "key", key)

		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.Warn("Fetch failed", "key", key, "error", err)
			return v, err
		}

		e := &entry[V]{value: v}
		e.touch(c.now())

		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()

		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	now := c.now()
	if ok && e.fresh(now, c.ttl) {
		e.touch(now)
		return e.value, true
	}
	var zero V
	return zero, false
}

// Invalidate removes the value for key
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Fetches returns how many fetches have been started
func (c *Cache[V]) Fetches() int64 {
	return c.fetches.Load()
}
