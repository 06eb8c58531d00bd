package memory

import (
	"context"
	"sync"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"
)

// ForecastCache is a map-backed cache. TTLs are honored lazily on read.
type ForecastCache struct {
	mu      sync.Mutex
	entries map[core.EntityID]map[string]cacheEntry
}

type cacheEntry struct {
	forecast  insight.ForecastResult
	expiresAt time.Time
}

// NewForecastCache creates an empty cache.
func NewForecastCache() *ForecastCache {
	return &ForecastCache{entries: make(map[core.EntityID]map[string]cacheEntry)}
}

// GetForecast returns a cached forecast when present and unexpired.
func (c *ForecastCache) GetForecast(ctx context.Context, entityID core.EntityID, dateKey, factorHash string) (*insight.ForecastResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[entityID][dateKey+"|"+factorHash]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries[entityID], dateKey+"|"+factorHash)
		return nil, false
	}
	f := entry.forecast
	return &f, true
}

// SetForecast stores a forecast. A zero ttl never expires.
func (c *ForecastCache) SetForecast(ctx context.Context, entityID core.EntityID, dateKey, factorHash string, f *insight.ForecastResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byKey, ok := c.entries[entityID]
	if !ok {
		byKey = make(map[string]cacheEntry)
		c.entries[entityID] = byKey
	}
	entry := cacheEntry{forecast: *f}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	byKey[dateKey+"|"+factorHash] = entry
	return nil
}

// InvalidateEntity drops every cached forecast for the entity.
func (c *ForecastCache) InvalidateEntity(ctx context.Context, entityID core.EntityID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, entityID)
	return nil
}
