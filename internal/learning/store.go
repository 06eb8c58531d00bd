// Package learning implements the multi-tenant sharing scheme: rolling
// validated entity patterns upward into regional and global scope, and
// resolving the most specific applicable patterns for any entity. Entities
// never read each other's raw data through this path, only aggregated
// patterns.
package learning

import (
	"context"
	"sort"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	"factorlens/domain/factor"
	"factorlens/internal"
	"factorlens/internal/config"
	apperrors "factorlens/internal/errors"
	"factorlens/internal/locks"
	"factorlens/ports"
)

// Specificity ranks, most specific first. Every entity resolves at least
// the global tier, so resolution is total even for brand-new entities.
const (
	rankEntity = iota
	rankRegionCategory
	rankRegion
	rankCategoryGlobal
	rankGlobal
	rankNotApplicable
)

// Store owns the cross-scope learning operations over the correlation
// repository. Roll-up read-modify-writes are serialized per target key and
// retried through the repository's optimistic version check, so two
// concurrent roll-ups lose neither contribution.
type Store struct {
	repo      ports.CorrelationRepository
	cfg       config.AnalysisConfig
	log       *internal.Logger
	rollLocks *locks.Keyed
}

// NewStore creates a learning store.
func NewStore(repo ports.CorrelationRepository, cfg config.AnalysisConfig, logger *internal.Logger) *Store {
	return &Store{
		repo:      repo,
		cfg:       cfg,
		log:       logger.Component("learning"),
		rollLocks: locks.NewKeyed(),
	}
}

// ContributeUpward selects the entity's proven patterns (rolling accuracy
// at or above the roll-up floor with enough data points) and merges each
// into its regional (region+category+type) and global (type) counterpart
// via a sample-size-weighted running average of the coefficient. One-way:
// nothing flows back down through this call.
func (s *Store) ContributeUpward(ctx context.Context, entityID core.EntityID, region, category string) error {
	own, err := s.repo.ListEntityScoped(ctx, entityID, true)
	if err != nil {
		return apperrors.Wrap(err, "listing entity correlations for roll-up")
	}

	contributed := 0
	for _, c := range own {
		if c.AccuracyPct < s.cfg.RollupMinAccuracyPct || c.DataPoints < s.cfg.RollupMinDataPoints {
			continue
		}
		if err := s.mergeInto(ctx, c, correlation.ScopeRegional, region, category); err != nil {
			return err
		}
		if err := s.mergeInto(ctx, c, correlation.ScopeGlobal, "", ""); err != nil {
			return err
		}
		contributed++
	}
	if contributed > 0 {
		s.log.Info("entity %s: rolled %d patterns upward", entityID, contributed)
	}
	return nil
}

// mergeInto finds or creates the shared counterpart for one scope and
// absorbs the entity pattern into it.
func (s *Store) mergeInto(ctx context.Context, from *correlation.Correlation, scope correlation.Scope, region, category string) error {
	key := from.Key()
	lockKey := string(scope) + "|" + region + "|" + category + "|" + from.FactorShape
	s.rollLocks.Lock(lockKey)
	defer s.rollLocks.Unlock(lockKey)

	var lastErr error
	for attempt := 0; attempt <= s.cfg.VersionConflictRetries; attempt++ {
		target, err := s.repo.FindByKey(ctx, scope, "", region, category, key)
		switch {
		case err != nil && apperrors.HasCode(err, apperrors.CodeNotFound):
			shared := newShared(from, scope, region, category, time.Now().UTC())
			if err := s.repo.Create(ctx, shared); err != nil {
				lastErr = err
				continue
			}
			return nil

		case err != nil:
			return apperrors.Wrap(err, "finding shared correlation")

		default:
			target.AbsorbContribution(from, time.Now().UTC())
			if err := s.repo.Update(ctx, target); err != nil {
				if apperrors.HasCode(err, apperrors.CodeStaleVersionConflict) {
					lastErr = err
					continue
				}
				return apperrors.Wrap(err, "updating shared correlation")
			}
			return nil
		}
	}
	return apperrors.Wrap(lastErr, "retries exhausted merging shared correlation")
}

// newShared derives a fresh shared record from an entity pattern. The
// statistics come from absorbing the pattern as the first contribution,
// so first and repeat roll-ups go through the same arithmetic.
func newShared(from *correlation.Correlation, scope correlation.Scope, region, category string, now time.Time) *correlation.Correlation {
	shared := &correlation.Correlation{
		ID:             core.CorrelationID(core.NewID()),
		Scope:          scope,
		Region:         region,
		Category:       category,
		FactorType:     from.FactorType,
		FactorShape:    from.FactorShape,
		Metric:         from.Metric,
		OutcomeValue:   from.OutcomeValue,
		Description:    from.Description,
		Recommendation: from.Recommendation,
		FirstSeen:      now,
		LastUpdated:    now,
		IsActive:       true,
		Version:        1,
	}
	shared.AbsorbContribution(from, now)
	return shared
}

// Resolve returns the active, sufficiently confident patterns applicable
// to the entity, most specific tier winning per (type, shape) key, sorted
// by confidence descending. It is deterministic and total: a brand-new
// entity still sees the global tier.
func (s *Store) Resolve(ctx context.Context, entityID core.EntityID, region, category string, factorType *factor.Type) ([]*correlation.Correlation, error) {
	candidates, err := s.repo.ListForResolution(ctx, ports.ResolutionQuery{
		EntityID:      entityID,
		Region:        region,
		Category:      category,
		FactorType:    factorType,
		MinConfidence: s.cfg.ResolveMinConfidence,
		OnlyActive:    true,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "listing resolution candidates")
	}

	best := make(map[correlation.Key]*correlation.Correlation)
	bestRank := make(map[correlation.Key]int)
	for _, c := range candidates {
		r := specificity(c, entityID, region, category)
		if r == rankNotApplicable {
			continue
		}
		key := c.Key()
		cur, ok := best[key]
		if !ok || r < bestRank[key] || (r == bestRank[key] && c.Confidence > cur.Confidence) {
			best[key] = c
			bestRank[key] = r
		}
	}

	out := make([]*correlation.Correlation, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].FactorShape < out[j].FactorShape
	})
	return out, nil
}

// specificity ranks a candidate for an entity, or rankNotApplicable when
// the candidate belongs to some other entity/region.
func specificity(c *correlation.Correlation, entityID core.EntityID, region, category string) int {
	switch c.Scope {
	case correlation.ScopeEntity:
		if c.EntityID == entityID {
			return rankEntity
		}
	case correlation.ScopeRegional:
		if c.Region != region {
			return rankNotApplicable
		}
		if c.Category != "" {
			if c.Category == category {
				return rankRegionCategory
			}
			return rankNotApplicable
		}
		return rankRegion
	case correlation.ScopeGlobal:
		if c.Category != "" {
			if c.Category == category {
				return rankCategoryGlobal
			}
			return rankNotApplicable
		}
		return rankGlobal
	}
	return rankNotApplicable
}
