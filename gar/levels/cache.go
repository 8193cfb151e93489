package levels

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader produces a level table for an extracted-data location.
type Loader func(dir string) (Table, error)

// Cache is a cache-aside wrapper around a Loader with an absolute TTL per
// entry. Concurrent Get calls for the same uncached key collapse into a
// single loader invocation; loader failures propagate to every waiter and
// are never cached.
type Cache struct {
	loader Loader
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	now     func() time.Time
}

type cacheEntry struct {
	table     Table
	expiresAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheClock overrides the time source; used by tests to drive expiry.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLoader overrides the table loader; used by tests.
func WithLoader(loader Loader) CacheOption {
	return func(c *Cache) {
		c.loader = loader
	}
}

// NewCache creates a level-table cache with the given TTL.
func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:  LoadTable,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the level table for sourceKey, loading it at most once per TTL
// window. sourceKey identifies a particular extracted-data location.
func (c *Cache) Get(sourceKey string) (Table, error) {
	if table, ok := c.lookup(sourceKey); ok {
		return table, nil
	}

	result, err, shared := c.group.Do(sourceKey, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have stored
		// the entry between our miss and this callback.
		if table, ok := c.lookup(sourceKey); ok {
			return table, nil
		}

		table, err := c.loader(sourceKey)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[sourceKey] = cacheEntry{
			table:     table,
			expiresAt: c.now().Add(c.ttl),
		}
		c.mu.Unlock()

		slog.Debug("Reference-level table loaded",
			"source", sourceKey,
			"levels", len(table),
			"ttl", c.ttl)

		return table, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Level-table load shared with concurrent caller", "source", sourceKey)
	}

	return result.(Table), nil
}

// Invalidate clears all cached entries.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) lookup(sourceKey string) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[sourceKey]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.table, true
}
