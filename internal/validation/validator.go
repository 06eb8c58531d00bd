// Package validation backtests learned correlations against fresher data
// than they were discovered on, feeding rolling accuracy back into each
// pattern's confidence and retiring patterns that stop holding. The whole
// learning system leans on this loop being a real, deterministic test,
// not an acknowledgment stub.
package validation

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
	"factorlens/ports"
)

// Result summarizes one validation run over an entity.
type Result struct {
	Confirmed   int `json:"confirmed"`
	Refuted     int `json:"refuted"`
	Skipped     int `json:"skipped"`
	Deactivated int `json:"deactivated"`
}

// Validator backtests an entity's active patterns.
type Validator struct {
	repo ports.CorrelationRepository
	cfg  config.AnalysisConfig
	log  *internal.Logger
}

// NewValidator creates a validator.
func NewValidator(repo ports.CorrelationRepository, cfg config.AnalysisConfig, logger *internal.Logger) *Validator {
	return &Validator{repo: repo, cfg: cfg, log: logger.Component("validation")}
}

// ValidateEntity backtests every active entity-scoped pattern against the
// fresh rows and persists the updated counters. Patterns whose condition
// matches too few fresh days are skipped, not penalized.
func (v *Validator) ValidateEntity(ctx context.Context, entityID core.EntityID, freshRows []outcome.Row) (Result, error) {
	var result Result
	patterns, err := v.repo.ListEntityScoped(ctx, entityID, true)
	if err != nil {
		return result, apperrors.Wrap(err, "listing patterns to validate")
	}

	for _, c := range patterns {
		confirmed, ok := v.Backtest(c, freshRows)
		if !ok {
			result.Skipped++
			continue
		}
		updated, deactivated, err := v.record(ctx, c.ID, confirmed)
		if err != nil {
			v.log.Warn("entity %s: recording backtest for %s failed: %v", entityID, c.FactorShape, err)
			continue
		}
		if confirmed {
			result.Confirmed++
		} else {
			result.Refuted++
		}
		if deactivated {
			result.Deactivated++
			// Expected feedback-loop outcome, not an error.
			v.log.Info("entity %s: pattern %s deactivated (accuracy %.1f%% over %d trials)",
				entityID, updated.FactorShape, updated.AccuracyPct, updated.Trials())
		}
	}
	return result, nil
}

// Backtest replays one pattern against fresh rows: it splits the rows on
// the pattern's condition, compares the observed outcome delta with the
// stored prediction, and confirms when the absolute percentage error is
// under the threshold. Returns ok=false when the rows cannot support a
// verdict. Pure; persistence is the caller's concern.
func (v *Validator) Backtest(c *correlation.Correlation, rows []outcome.Row) (confirmed, ok bool) {
	cond, found := factor.LookupCondition(c.FactorShape)
	if !found {
		return false, false
	}

	active := outcome.ActiveRows(rows)
	matchRow := func(row outcome.Row) bool { return cond.Matches(row.Factors) }
	if c.FactorShape == factor.ShapeEveningPeak {
		// The daypart split is a property of the day's own hourly
		// distribution, replayed under the same predicate discovery used.
		matchRow = outcome.EveningSkewSplit(active, factor.EveningStartHour)
	}

	var matchedSum, unmatchedSum float64
	var matched, unmatched int
	for _, row := range active {
		if matchRow(row) {
			matchedSum += row.Revenue
			matched++
		} else {
			unmatchedSum += row.Revenue
			unmatched++
		}
	}
	if matched < v.cfg.BacktestMinMatches || unmatched == 0 {
		return false, false
	}
	unmatchedMean := unmatchedSum / float64(unmatched)
	if unmatchedMean == 0 {
		return false, false
	}

	observedPct := 100 * (matchedSum/float64(matched) - unmatchedMean) / unmatchedMean
	predictedPct := c.OutcomeChangePct

	// Absolute percentage error of the predicted delta, floored at one
	// percentage point of denominator so near-zero predictions do not
	// explode the ratio.
	denom := math.Max(math.Abs(predictedPct), 1)
	errorPct := 100 * math.Abs(predictedPct-observedPct) / denom
	return errorPct < v.cfg.BacktestMaxErrorPct, true
}

// record persists one backtest outcome under the optimistic version
// check, re-reading the record on conflict so no trial is lost.
func (v *Validator) record(ctx context.Context, id core.CorrelationID, confirmed bool) (*correlation.Correlation, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= v.cfg.VersionConflictRetries; attempt++ {
		c, err := v.repo.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		deactivated := c.RecordBacktest(confirmed, v.cfg.TrialSaturation, time.Now().UTC())
		if err := v.repo.Update(ctx, c); err != nil {
			if apperrors.HasCode(err, apperrors.CodeStaleVersionConflict) {
				lastErr = err
				continue
			}
			return nil, false, err
		}
		return c, deactivated, nil
	}
	return nil, false, apperrors.Wrap(lastErr, "retries exhausted recording backtest")
}
