// Package insights discovers entity-only patterns from aggregated
// transactions alone, no external factors involved. All aggregation is
// executed by the data store; this engine only reasons over group-by
// results and never materializes per-row transaction sets.
package insights

import (
	"context"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"
	"factorlens/internal"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// Engine computes the internal pattern set for an entity and period.
type Engine struct {
	agg ports.AggregationStore
	log *internal.Logger
}

// NewEngine creates an internal pattern engine.
func NewEngine(agg ports.AggregationStore, logger *internal.Logger) *Engine {
	return &Engine{agg: agg, log: logger.Component("insights")}
}

// InternalPatterns regenerates the full pattern set for the period. Sets
// carry no cross-run identity; each run replaces the last wholesale.
// Sections without enough data are omitted rather than fabricated.
func (e *Engine) InternalPatterns(ctx context.Context, entityID core.EntityID, start, end time.Time) (*insight.PatternSet, error) {
	set := &insight.PatternSet{
		EntityID:    entityID,
		PeriodStart: start,
		PeriodEnd:   end,
		GeneratedAt: time.Now().UTC(),
	}

	temporal, err := e.temporalPatterns(ctx, entityID, start, end)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("aggregation store", err)
	}
	set.Temporal = temporal

	employees, err := e.employeePatterns(ctx, entityID, start, end)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("aggregation store", err)
	}
	set.Employees = employees

	menu, err := e.menuPatterns(ctx, entityID, start, end)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("aggregation store", err)
	}
	set.Menu = menu

	customers, err := e.customerPattern(ctx, entityID, start, end)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("aggregation store", err)
	}
	set.Customers = customers

	velocity, err := e.velocityPattern(ctx, entityID, start, end)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("aggregation store", err)
	}
	set.Velocity = velocity

	return set, nil
}
