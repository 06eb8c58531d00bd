package rediscache

import (
	"context"
	"fmt"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"
)

// ForecastCache caches forecast results keyed by entity, target day, and
// factor hash. The factor hash keeps a stale forecast from surviving a
// changed factor outlook for the same day.
type ForecastCache struct {
	redis      *RedisClient
	defaultTTL time.Duration
}

// NewForecastCache creates a cache with a fallback TTL for SetForecast
// calls that pass zero.
func NewForecastCache(redis *RedisClient, defaultTTL time.Duration) *ForecastCache {
	return &ForecastCache{redis: redis, defaultTTL: defaultTTL}
}

// GetForecast returns a cached forecast and true on a hit.
func (c *ForecastCache) GetForecast(ctx context.Context, entityID core.EntityID, dateKey, factorHash string) (*insight.ForecastResult, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	var f insight.ForecastResult
	if err := c.redis.Get(ctx, forecastKey(entityID, dateKey, factorHash), &f); err != nil {
		return nil, false
	}
	return &f, true
}

// SetForecast caches a forecast. A zero ttl uses the configured default.
func (c *ForecastCache) SetForecast(ctx context.Context, entityID core.EntityID, dateKey, factorHash string, f *insight.ForecastResult, ttl time.Duration) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.redis.Set(ctx, forecastKey(entityID, dateKey, factorHash), f, ttl)
}

// InvalidateEntity drops every cached forecast for an entity.
func (c *ForecastCache) InvalidateEntity(ctx context.Context, entityID core.EntityID) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.DeleteByPattern(ctx, fmt.Sprintf("forecast:%s:*", entityID))
}

func forecastKey(entityID core.EntityID, dateKey, factorHash string) string {
	return fmt.Sprintf("forecast:%s:%s:%s", entityID, dateKey, factorHash)
}
