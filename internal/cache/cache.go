package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/user-weather-service/internal/models"
)

// Cache stores forecasts by key. Get returns (zero, false, nil) on a miss.
// Expiry is decided by the implementation, never by callers.
type Cache interface {
	Get(ctx context.Context, key string) (models.Forecast, bool, error)
	Set(ctx context.Context, key string, value models.Forecast) error
}

// EvictionPolicy decides whether a stored entry may still be served.
type EvictionPolicy interface {
	Expired(storedAt, now time.Time) bool
}

// NeverEvict keeps entries forever. It is the default policy.
type NeverEvict struct{}

// Expired always returns false.
func (NeverEvict) Expired(time.Time, time.Time) bool { return false }

// TTLPolicy expires entries TTL after they were stored.
type TTLPolicy struct {
	TTL time.Duration
}

// Expired reports whether now is past storedAt+TTL. A non-positive TTL never expires.
func (p TTLPolicy) Expired(storedAt, now time.Time) bool {
	if p.TTL <= 0 {
		return false
	}
	return now.After(storedAt.Add(p.TTL))
}

// PolicyForTTL returns TTLPolicy for ttl > 0 and NeverEvict otherwise.
func PolicyForTTL(ttl time.Duration) EvictionPolicy {
	if ttl > 0 {
		return TTLPolicy{TTL: ttl}
	}
	return NeverEvict{}
}

// InMemoryCache implements Cache with a map guarded by an RWMutex.
// Expired entries are removed on access.
type InMemoryCache struct {
	mu     sync.RWMutex
	data   map[string]cacheEntry
	policy EvictionPolicy
	now    func() time.Time
}

type cacheEntry struct {
	value    models.Forecast
	storedAt time.Time
}

// NewInMemoryCache creates an in-memory cache. A nil policy means NeverEvict.
func NewInMemoryCache(policy EvictionPolicy) *InMemoryCache {
	if policy == nil {
		policy = NeverEvict{}
	}
	return &InMemoryCache{
		data:   make(map[string]cacheEntry),
		policy: policy,
		now:    time.Now,
	}
}

// Get retrieves the cached forecast for key if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.Forecast{}, false, nil
	}

	if c.policy.Expired(entry.storedAt, c.now()) {
		c.mu.Lock()
		// Another goroutine may have stored a fresh entry meanwhile.
		if cur, ok := c.data[key]; ok && cur.storedAt.Equal(entry.storedAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return models.Forecast{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores value under key, replacing any existing entry (last write wins).
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Forecast) error {
	c.mu.Lock()
	c.data[key] = cacheEntry{value: value, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
