package dedup

import (
	"sync"
	"time"
)

// ttlCache is the fast advisory layer: a short-TTL in-memory presence set.
// It is allowed to miss under concurrency; the persistent layer is the one
// that counts.
type ttlCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// checkAndStore reports whether key was already present (and unexpired) and
// stores it if not. Expired entries are swept opportunistically.
func (c *ttlCache) checkAndStore(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.entries[key]; ok && now.Before(exp) {
		return true
	}

	if len(c.entries) > 4096 {
		for k, exp := range c.entries {
			if now.After(exp) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = now.Add(c.ttl)
	return false
}
