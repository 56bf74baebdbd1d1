package secrets

import (
	"sync"
	"time"

	"github.com/kevin07696/mpesa-sdk/internal/adapters/ports"
)

// secretCache implements a simple in-memory TTL cache for secrets
type secretCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	enabled bool
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

func newSecretCache(enabled bool, ttl time.Duration) *secretCache {
	return &secretCache{
		entries: make(map[string]cacheEntry),
		enabled: enabled && ttl > 0,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *secretCache) get(key string) *ports.Secret {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(key string, secret *ports.Secret) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{secret: secret, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
