package ports

import (
	"context"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"
)

// ForecastCache is an optional read-through cache for forecasts. A nil or
// no-op implementation is always safe: prediction reads persisted state
// directly when the cache misses or is absent.
type ForecastCache interface {
	GetForecast(ctx context.Context, entityID core.EntityID, dateKey, factorHash string) (*insight.ForecastResult, bool)
	SetForecast(ctx context.Context, entityID core.EntityID, dateKey, factorHash string, f *insight.ForecastResult, ttl time.Duration) error

	// InvalidateEntity drops every cached forecast for an entity; called
	// after discovery or validation mutates its pattern set.
	InvalidateEntity(ctx context.Context, entityID core.EntityID) error
}
