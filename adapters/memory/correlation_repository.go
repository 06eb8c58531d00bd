// Package memory provides in-memory adapter implementations used by tests
// and by single-process deployments that run without Postgres.
package memory

import (
	"context"
	"sync"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// CorrelationRepository is an arena of correlation records keyed by id.
// Version chains are ordinary records linked by PreviousVersionID, which
// satisfies the append-only-history invariant without an event log.
type CorrelationRepository struct {
	mu      sync.RWMutex
	records map[core.CorrelationID]*correlation.Correlation
}

// NewCorrelationRepository creates an empty repository.
func NewCorrelationRepository() *CorrelationRepository {
	return &CorrelationRepository{records: make(map[core.CorrelationID]*correlation.Correlation)}
}

// Create inserts a new record after validating its scope invariants.
func (r *CorrelationRepository) Create(ctx context.Context, c *correlation.Correlation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[c.ID]; exists {
		return apperrors.InvalidInput("correlation id already exists")
	}
	r.records[c.ID] = clone(c)
	return nil
}

// Update persists a mutated record under an optimistic version check: the
// stored version must equal the caller's loaded version. On success both
// the stored and the caller's copy advance one version.
func (r *CorrelationRepository) Update(ctx context.Context, c *correlation.Correlation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[c.ID]
	if !ok {
		return apperrors.NotFound("correlation")
	}
	if stored.Version != c.Version {
		return apperrors.StaleVersionConflict("correlation version moved underneath the update")
	}
	c.Version++
	r.records[c.ID] = clone(c)
	return nil
}

// GetByID returns a copy of one record.
func (r *CorrelationRepository) GetByID(ctx context.Context, id core.CorrelationID) (*correlation.Correlation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.records[id]
	if !ok {
		return nil, apperrors.NotFound("correlation")
	}
	return clone(stored), nil
}

// FindByKey returns the newest version for the scope/key combination,
// active or not.
func (r *CorrelationRepository) FindByKey(ctx context.Context, scope correlation.Scope, entityID core.EntityID, region, category string, key correlation.Key) (*correlation.Correlation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var newest *correlation.Correlation
	for _, c := range r.records {
		if c.Scope != scope || c.Key() != key {
			continue
		}
		switch scope {
		case correlation.ScopeEntity:
			if c.EntityID != entityID {
				continue
			}
		case correlation.ScopeRegional:
			if c.Region != region || c.Category != category {
				continue
			}
		case correlation.ScopeGlobal:
			if c.Region != "" || c.Category != category {
				continue
			}
		}
		if newest == nil || c.Version > newest.Version ||
			(c.Version == newest.Version && c.LastUpdated.After(newest.LastUpdated)) {
			newest = c
		}
	}
	if newest == nil {
		return nil, apperrors.NotFound("correlation")
	}
	return clone(newest), nil
}

// ListEntityScoped returns the entity's own correlations.
func (r *CorrelationRepository) ListEntityScoped(ctx context.Context, entityID core.EntityID, onlyActive bool) ([]*correlation.Correlation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*correlation.Correlation
	for _, c := range r.records {
		if c.Scope != correlation.ScopeEntity || c.EntityID != entityID {
			continue
		}
		if onlyActive && !c.IsActive {
			continue
		}
		out = append(out, clone(c))
	}
	return out, nil
}

// ListForResolution returns every candidate across the visible tiers.
func (r *CorrelationRepository) ListForResolution(ctx context.Context, q ports.ResolutionQuery) ([]*correlation.Correlation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*correlation.Correlation
	for _, c := range r.records {
		if q.OnlyActive && !c.IsActive {
			continue
		}
		if c.Confidence < q.MinConfidence {
			continue
		}
		if q.FactorType != nil && c.FactorType != *q.FactorType {
			continue
		}
		switch c.Scope {
		case correlation.ScopeEntity:
			if c.EntityID != q.EntityID {
				continue
			}
		case correlation.ScopeRegional:
			if c.Region != q.Region {
				continue
			}
			if c.Category != "" && c.Category != q.Category {
				continue
			}
		case correlation.ScopeGlobal:
			if c.Category != "" && c.Category != q.Category {
				continue
			}
		}
		out = append(out, clone(c))
	}
	return out, nil
}

func clone(c *correlation.Correlation) *correlation.Correlation {
	out := *c
	if c.PreviousVersionID != nil {
		prev := *c.PreviousVersionID
		out.PreviousVersionID = &prev
	}
	if c.Contributions != nil {
		out.Contributions = make(map[string]correlation.Contribution, len(c.Contributions))
		for k, v := range c.Contributions {
			out.Contributions[k] = v
		}
	}
	return &out
}
