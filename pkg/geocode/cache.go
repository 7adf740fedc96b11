package geocode

import (
	"context"
	"sync"
	"time"
)

// Entry is a cached lookup outcome. Found=false records a miss so that
// unresolvable zips are not retried against remote providers.
type Entry struct {
	Point
	Found    bool
	Source   string
	CachedAt time.Time
}

// Cache stores lookup outcomes by normalized zip.
type Cache interface {
	Get(ctx context.Context, zip string) (Entry, bool, error)
	Set(ctx context.Context, zip string, e Entry) error
}

// MemoryCache is a process-local Cache with an optional TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache. A zero ttl never expires.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry), ttl: ttl, now: time.Now}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, zip string) (Entry, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[zip]
	c.mu.RUnlock()
	if !ok || expired(e, c.ttl, c.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, zip string, e Entry) error {
	if e.CachedAt.IsZero() {
		e.CachedAt = c.now()
	}
	c.mu.Lock()
	c.entries[zip] = e
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func expired(e Entry, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.CachedAt) > ttl
}

// nilIfEmpty returns nil for empty strings, allowing NULL storage.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
