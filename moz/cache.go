package moz

import (
	"sync"
	"time"

	"github.com/linkdripai/linkdrip/domain"
)

// cacheEntry pairs cached metrics with their expiry time.
type cacheEntry struct {
	metrics *domain.DomainMetrics
	expires time.Time
}

// ttlCache is a minimal in-memory cache with per-entry expiry. Expired
// entries are swept opportunistically on writes.
type ttlCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached metrics for a domain if present and not expired.
func (c *ttlCache) get(host string) (*domain.DomainMetrics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[host]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.metrics, true
}

// set stores metrics for a domain and sweeps any expired entries.
func (c *ttlCache) set(host string, m *domain.DomainMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}

	c.entries[host] = cacheEntry{
		metrics: m,
		expires: now.Add(c.ttl),
	}
}
