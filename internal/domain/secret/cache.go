// Package secret provides the in-memory secret cache. The cache memoizes
// values fetched from the remote secret store and coalesces concurrent
// fetches for the same key so the store sees at most one outstanding call
// per key at any time.
package secret

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/signetgate/signetgate/internal/port/outbound"
)

// FetchError wraps a secret store failure. Mapped to a 500 response; the
// next caller is free to retry because the cache drops the in-flight marker
// on failure.
type FetchError struct {
	Name   string
	Region string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching secret %q (region %q): %v", e.Name, e.Region, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	FetchErrors uint64
}

// Cache memoizes secret values keyed by (name, region). Values never
// expire; they are removed only by Clear/ClearAll (used for rotation and
// test resets). Thread-safe for concurrent use.
type Cache struct {
	store outbound.SecretStore

	mu     sync.RWMutex
	values map[string]string

	group singleflight.Group

	hits        atomic.Uint64
	misses      atomic.Uint64
	fetchErrors atomic.Uint64
}

// NewCache creates a cache backed by the given store.
func NewCache(store outbound.SecretStore) *Cache {
	return &Cache{
		store:  store,
		values: make(map[string]string),
	}
}

// cacheKey builds the map/singleflight key for (name, region).
func cacheKey(name, region string) string {
	return name + "\x00" + region
}

// Get returns the secret value for (name, region). A cached value is
// returned without a store call. Concurrent callers for the same key share
// one in-flight fetch and all receive its result; on failure all waiters
// receive the same FetchError and the next call retries from scratch.
// Fetched values are trimmed of surrounding whitespace before caching:
// remote stores may append trailing newlines.
func (c *Cache) Get(ctx context.Context, name, region string) (string, error) {
	key := cacheKey(name, region)

	c.mu.RLock()
	value, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a racing fetch may have populated the
		// key between the read above and joining the group.
		c.mu.RLock()
		cached, ok := c.values[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		c.misses.Add(1)
		raw, err := c.store.Fetch(ctx, name, region)
		if err != nil {
			c.fetchErrors.Add(1)
			return "", err
		}

		trimmed := strings.TrimSpace(raw)
		c.mu.Lock()
		c.values[key] = trimmed
		c.mu.Unlock()
		return trimmed, nil
	})
	if err != nil {
		return "", &FetchError{Name: name, Region: region, Err: err}
	}
	return v.(string), nil
}

// Clear removes the cached value for one (name, region) key.
func (c *Cache) Clear(name, region string) {
	key := cacheKey(name, region)
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// ClearAll removes every cached value.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	c.values = make(map[string]string)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Stats returns a snapshot of the hit/miss/error counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		FetchErrors: c.fetchErrors.Load(),
	}
}
