package discovery

import (
	"context"
	"math"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	"factorlens/domain/factor"
	"factorlens/domain/outcome"
	"factorlens/internal"
	"factorlens/internal/config"
	apperrors "factorlens/internal/errors"
	"factorlens/internal/locks"
	"factorlens/ports"
)

// Result summarizes one discovery run.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Engine runs the per-factor analyzers over an entity's normalized rows,
// gates their findings, and upserts accepted ones as entity-scoped
// correlations. Analyzers fan out concurrently; correlation writes are
// serialized per (entity, type, shape) key on top of the repository's
// optimistic version check, so two analyzers targeting the same record
// cannot lose updates.
type Engine struct {
	repo       ports.CorrelationRepository
	cfg        config.AnalysisConfig
	log        *internal.Logger
	analyzers  []Analyzer
	writeLocks *locks.Keyed
	minMatched map[factor.Type]int
}

// NewEngine creates a discovery engine with the standard analyzer set.
func NewEngine(repo ports.CorrelationRepository, cfg config.AnalysisConfig, logger *internal.Logger) *Engine {
	return &Engine{
		repo: repo,
		cfg:  cfg,
		log:  logger.Component("discovery"),
		analyzers: []Analyzer{
			NewWeatherAnalyzer(),
			NewHolidayAnalyzer(),
			NewEventAnalyzer(),
			NewSportsAnalyzer(),
			NewTemporalAnalyzer(),
		},
		writeLocks: locks.NewKeyed(),
		// Per-type minimum matched-bucket sizes. Rarer factors carry a
		// higher bar so a handful of noisy observations cannot clear it.
		minMatched: map[factor.Type]int{
			factor.TypeWeather:   5,
			factor.TypeDayOfWeek: 4,
			factor.TypeTimeOfDay: 5,
			factor.TypeHoliday:   6,
			factor.TypeSports:    6,
			factor.TypeEvent:     8,
		},
	}
}

// Discover runs all analyzers over the rows and persists accepted findings
// for the entity. Re-running over unchanged data refreshes existing
// records and creates none.
func (e *Engine) Discover(ctx context.Context, entityID core.EntityID, rows []outcome.Row) (Result, error) {
	var result Result
	if len(rows) == 0 {
		return result, apperrors.InsufficientData("no rows in range")
	}

	findings := e.runAnalyzers(ctx, rows)
	accepted := e.gate(findings)

	// Compound conditions are only attempted over already-significant
	// single factors, then held to the same gate.
	compounds := e.gate(compoundFindings(ctx, rows, accepted))
	accepted = append(accepted, compounds...)

	for _, f := range accepted {
		created, err := e.upsert(ctx, entityID, f)
		if err != nil {
			e.log.Warn("entity %s: persisting %s failed: %v", entityID, f.Shape, err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	e.log.Info("entity %s: %d findings accepted (%d created, %d updated)",
		entityID, len(accepted), result.Created, result.Updated)
	return result, nil
}

// runAnalyzers fans the analyzer set out concurrently and collects their
// findings in analyzer order.
func (e *Engine) runAnalyzers(ctx context.Context, rows []outcome.Row) []Finding {
	type indexed struct {
		idx      int
		findings []Finding
	}
	resultChan := make(chan indexed, len(e.analyzers))

	for i, analyzer := range e.analyzers {
		go func(a Analyzer, idx int) {
			findings, err := a.Analyze(ctx, rows)
			if err != nil && !apperrors.HasCode(err, apperrors.CodeInsufficientData) {
				e.log.Warn("analyzer %s: %v", a.Name(), err)
			}
			resultChan <- indexed{idx: idx, findings: findings}
		}(analyzer, i)
	}

	collected := make([][]Finding, len(e.analyzers))
	for range e.analyzers {
		res := <-resultChan
		collected[res.idx] = res.findings
	}

	var out []Finding
	for _, fs := range collected {
		out = append(out, fs...)
	}
	return out
}

// gate applies the acceptance rule: |r| over the floor, significant
// p-value, and enough matched days for the factor's rarity.
func (e *Engine) gate(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		min, ok := e.minMatched[f.FactorType]
		if !ok {
			min = 5
		}
		if math.Abs(f.Coefficient) < e.cfg.MinCorrelation {
			continue
		}
		if f.PValue >= e.cfg.SignificanceLevel {
			continue
		}
		if f.MatchedDays < min {
			continue
		}
		out = append(out, f)
	}
	return out
}

// upsert creates or refreshes the entity-scoped correlation for a finding.
// A deactivated predecessor is superseded by a new version rather than
// silently revived.
func (e *Engine) upsert(ctx context.Context, entityID core.EntityID, f Finding) (bool, error) {
	key := correlation.Key{FactorType: f.FactorType, FactorShape: f.Shape}
	lockKey := entityID.String() + "|" + f.Shape
	e.writeLocks.Lock(lockKey)
	defer e.writeLocks.Unlock(lockKey)

	d := correlation.Discovery{
		EntityID:         entityID,
		FactorType:       f.FactorType,
		FactorShape:      f.Shape,
		Coefficient:      f.Coefficient,
		PValue:           f.PValue,
		SampleSize:       f.SampleSize,
		OutcomeValue:     f.OutcomeValue,
		OutcomeChangePct: f.OutcomeChangePct,
		Description:      f.Description,
		Recommendation:   f.Recommendation,
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.VersionConflictRetries; attempt++ {
		existing, err := e.repo.FindByKey(ctx, correlation.ScopeEntity, entityID, "", "", key)
		switch {
		case err != nil && apperrors.HasCode(err, apperrors.CodeNotFound):
			c := correlation.NewFromDiscovery(d, time.Now().UTC())
			if err := e.repo.Create(ctx, c); err != nil {
				lastErr = err
				continue
			}
			return true, nil

		case err != nil:
			return false, err

		case existing.IsActive:
			existing.Refresh(d, time.Now().UTC())
			if err := e.repo.Update(ctx, existing); err != nil {
				if apperrors.HasCode(err, apperrors.CodeStaleVersionConflict) {
					lastErr = err
					continue
				}
				return false, err
			}
			return false, nil

		default:
			// Deactivated: persist the tombstone first so the successor
			// forks from the post-update version and stays strictly newer.
			existing.LastUpdated = time.Now().UTC()
			if err := e.repo.Update(ctx, existing); err != nil {
				if apperrors.HasCode(err, apperrors.CodeStaleVersionConflict) {
					lastErr = err
					continue
				}
				return false, err
			}
			next := existing.Supersede(d, time.Now().UTC())
			if err := e.repo.Create(ctx, next); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, apperrors.Wrap(lastErr, "retries exhausted upserting correlation")
}
