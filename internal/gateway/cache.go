package gateway

import (
	"sync"
	"time"
)

// cacheEntry keeps the payload together with its fetch time so
// freshness can be judged against a per-endpoint TTL at read time.
type cacheEntry struct {
	payload   []byte
	fetchedAt time.Time
}

// Cache is an in-process response cache. Expired entries are retained:
// they are never served proactively, but remain available as a
// last-resort fallback when the provider fails.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	clock   Clock
}

// NewCache creates an empty response cache.
func NewCache(clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		clock:   clock,
	}
}

// Get returns the payload for key if present. fresh reports whether
// the entry is younger than ttl.
func (c *Cache) Get(key string, ttl time.Duration) (payload []byte, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}

	age := c.clock.Now().Sub(entry.fetchedAt)
	return entry.payload, age < ttl, true
}

// Set stores a payload for key, stamping it with the current time.
func (c *Cache) Set(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		payload:   payload,
		fetchedAt: c.clock.Now(),
	}
}

// Len returns the number of cached entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
