package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"factorlens/domain/core"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// LocationResolverImpl reads entity locations from PostgreSQL.
type LocationResolverImpl struct {
	db *sqlx.DB
}

// NewLocationResolver creates a new PostgreSQL location resolver.
func NewLocationResolver(db *sqlx.DB) ports.LocationResolver {
	return &LocationResolverImpl{db: db}
}

// Resolve returns the entity's registered location.
func (r *LocationResolverImpl) Resolve(ctx context.Context, entityID core.EntityID) (ports.Location, error) {
	var loc ports.Location
	err := r.db.QueryRowxContext(ctx, `
		SELECT lat, lon, region, category
		FROM entity_locations
		WHERE entity_id = $1`, entityID).Scan(&loc.Lat, &loc.Lon, &loc.Region, &loc.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Location{}, apperrors.NotFound("entity location")
	}
	if err != nil {
		return ports.Location{}, apperrors.DatabaseError("resolve entity location", err)
	}
	return loc, nil
}
