package ports

import (
	"context"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	"factorlens/domain/factor"
)

// ResolutionQuery selects the candidate correlations for one entity across
// every sharing tier it can see: its own, its region (with and without
// category), its category at global scope, and global.
type ResolutionQuery struct {
	EntityID      core.EntityID
	Region        string
	Category      string
	FactorType    *factor.Type // nil means all types
	MinConfidence float64
	OnlyActive    bool
}

// CorrelationRepository persists correlations across all scopes. Update is
// an optimistic write: it succeeds only when the stored version equals the
// version the caller loaded, bumping it by one; otherwise it fails with a
// STALE_VERSION_CONFLICT the caller retries from a fresh read. Records are
// never deleted.
type CorrelationRepository interface {
	Create(ctx context.Context, c *correlation.Correlation) error
	Update(ctx context.Context, c *correlation.Correlation) error
	GetByID(ctx context.Context, id core.CorrelationID) (*correlation.Correlation, error)

	// FindByKey returns the newest version for the scope/key combination,
	// active or not, or a NOT_FOUND error. Scope keys not relevant to the
	// scope are ignored.
	FindByKey(ctx context.Context, scope correlation.Scope, entityID core.EntityID, region, category string, key correlation.Key) (*correlation.Correlation, error)

	// ListEntityScoped returns the entity's own correlations.
	ListEntityScoped(ctx context.Context, entityID core.EntityID, onlyActive bool) ([]*correlation.Correlation, error)

	// ListForResolution returns every candidate across the query's visible
	// tiers. Specificity ordering and dedup are the learning store's job.
	ListForResolution(ctx context.Context, q ResolutionQuery) ([]*correlation.Correlation, error)
}
