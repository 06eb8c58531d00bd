package ports

import (
	"context"

	"factorlens/domain/core"
)

// Location is an entity's placement and grouping. Region and Category are
// opaque grouping strings to the core; they only key the sharing tiers.
type Location struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Region   string  `json:"region"`
	Category string  `json:"category"`
}

// LocationResolver maps an entity to its location and grouping keys.
type LocationResolver interface {
	Resolve(ctx context.Context, entityID core.EntityID) (Location, error)
}
