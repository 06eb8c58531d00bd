// Package prediction combines a historical baseline, resolved correlations
// and known factors into a bounded revenue forecast. Forecasts are
// deterministic: identical baseline, resolved patterns and known factors
// always produce identical output.
package prediction

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	"factorlens/domain/factor"
	"factorlens/domain/insight"
	"factorlens/internal"
	"factorlens/internal/config"
	apperrors "factorlens/internal/errors"
	"factorlens/internal/learning"
	"factorlens/ports"
)

// Engine produces forecasts. It is read-mostly and safe under unbounded
// concurrency; the only write is a best-effort application-counter bump.
type Engine struct {
	agg     ports.AggregationStore
	store   *learning.Store
	repo    ports.CorrelationRepository
	factors ports.FactorSource
	cache   ports.ForecastCache
	cfg     config.AnalysisConfig
	log     *internal.Logger
}

// NewEngine creates a prediction engine. cache may be nil.
func NewEngine(
	agg ports.AggregationStore,
	store *learning.Store,
	repo ports.CorrelationRepository,
	factors ports.FactorSource,
	cache ports.ForecastCache,
	cfg config.AnalysisConfig,
	logger *internal.Logger,
) *Engine {
	return &Engine{
		agg:     agg,
		store:   store,
		repo:    repo,
		factors: factors,
		cache:   cache,
		cfg:     cfg,
		log:     logger.Component("prediction"),
	}
}

// Predict forecasts revenue for the entity on the target date. knownFactors
// may be nil, in which case the factor source is consulted; a day-of-week
// record for the target date is always present. Resolution or aggregation
// trouble degrades to a baseline-only forecast instead of failing.
func (e *Engine) Predict(ctx context.Context, entityID core.EntityID, loc ports.Location, targetDate time.Time, knownFactors factor.DayFactors) (*insight.ForecastResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PredictTimeout)
	defer cancel()

	knownFactors = e.completeFactors(ctx, entityID, targetDate, knownFactors)
	factorHash := hashFactors(knownFactors)
	dateKey := core.DateKey(targetDate)

	if e.cache != nil {
		if cached, ok := e.cache.GetForecast(ctx, entityID, dateKey, factorHash); ok {
			return cached, nil
		}
	}

	baseline, err := e.baseline(ctx, entityID, targetDate)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("aggregation store", err)
	}

	result := &insight.ForecastResult{
		EntityID:     entityID,
		TargetDate:   targetDate,
		Baseline:     baseline.AvgRevenue,
		BaselineDays: baseline.Days,
		GeneratedAt:  time.Now().UTC(),
	}

	resolved, err := e.store.Resolve(ctx, entityID, loc.Region, loc.Category, nil)
	if err != nil {
		// Degrade, never fail the forecast on resolution trouble.
		e.log.Warn("entity %s: resolution failed, baseline-only forecast: %v", entityID, err)
		result.BaselineOnly = true
		resolved = nil
	}

	applied := e.applyFactors(resolved, knownFactors, baseline.AvgRevenue)
	result.AppliedFactors = applied
	result.Mid = combineAdjustments(baseline.AvgRevenue, applied)
	result.Confidence = combinedConfidence(baseline.Days, applied)

	// Wider interval for lower confidence.
	margin := 0.05 + 0.35*(1-result.Confidence/100)
	result.Low = math.Max(0, result.Mid*(1-margin))
	result.High = result.Mid * (1 + margin)
	result.Recommendations = recommendations(applied)

	e.bumpAppliedCounters(ctx, applied)

	if e.cache != nil {
		if err := e.cache.SetForecast(ctx, entityID, dateKey, factorHash, result, 0); err != nil {
			e.log.Debug("entity %s: forecast cache write failed: %v", entityID, err)
		}
	}
	return result, nil
}

// baseline aggregates the target weekday's trailing-window average.
func (e *Engine) baseline(ctx context.Context, entityID core.EntityID, targetDate time.Time) (ports.BaselineAgg, error) {
	end := targetDate.AddDate(0, 0, -1)
	start := targetDate.AddDate(0, 0, -e.cfg.BaselineWindowDays)
	return e.agg.WeekdayBaseline(ctx, entityID, targetDate.Weekday(), start, end)
}

// completeFactors fills in knownFactors from the factor source when the
// caller supplied none, and always injects the target day-of-week record.
func (e *Engine) completeFactors(ctx context.Context, entityID core.EntityID, targetDate time.Time, known factor.DayFactors) factor.DayFactors {
	if known == nil && e.factors != nil {
		fetched, err := e.factors.FactorsForDate(ctx, entityID, targetDate)
		if err != nil {
			e.log.Debug("entity %s: factor lookup failed for %s: %v", entityID, core.DateKey(targetDate), err)
		} else {
			known = fetched
		}
	}
	for _, r := range known {
		if r.Type == factor.TypeDayOfWeek {
			return known
		}
	}
	return append(known, factor.Record{
		Type:      factor.TypeDayOfWeek,
		Date:      targetDate,
		DayOfWeek: &factor.DayOfWeek{Weekday: targetDate.UTC().Weekday()},
	})
}

// applyFactors selects the resolved patterns whose condition matches the
// known factors and weights each stored outcome change by its pattern's
// confidence.
func (e *Engine) applyFactors(resolved []*correlation.Correlation, known factor.DayFactors, baseline float64) []insight.AppliedFactor {
	var applied []insight.AppliedFactor
	for _, c := range resolved {
		cond, ok := factor.LookupCondition(c.FactorShape)
		if !ok || !cond.Matches(known) {
			continue
		}
		weight := c.Confidence / 100
		adjPct := c.OutcomeChangePct * weight
		applied = append(applied, insight.AppliedFactor{
			CorrelationID: c.ID,
			FactorType:    c.FactorType,
			FactorShape:   c.FactorShape,
			Kind:          insight.AdjustPercent,
			Weight:        weight,
			Adjustment:    adjPct,
			Contribution:  baseline * adjPct / 100,
			Description:   c.Description,
		})
	}
	return applied
}

// combineAdjustments compounds percentage adjustments multiplicatively and
// sums flat amounts afterward, so overlapping percentage factors are not
// double-counted.
func combineAdjustments(baseline float64, applied []insight.AppliedFactor) float64 {
	multiplier := 1.0
	flat := 0.0
	for _, a := range applied {
		switch a.Kind {
		case insight.AdjustPercent:
			multiplier *= 1 + a.Adjustment/100
		case insight.AdjustFlat:
			flat += a.Adjustment
		}
	}
	mid := baseline*multiplier + flat
	if mid < 0 {
		mid = 0
	}
	return mid
}

// combinedConfidence blends the baseline's sample depth with the applied
// patterns' own confidences, weighted by adjustment magnitude.
func combinedConfidence(baselineDays int, applied []insight.AppliedFactor) float64 {
	baseConf := math.Min(90, 30+float64(baselineDays)*60.0/90.0)
	if len(applied) == 0 {
		return baseConf
	}
	var weightSum, confSum float64
	for _, a := range applied {
		w := math.Abs(a.Adjustment) + 1
		weightSum += w
		confSum += w * a.Weight * 100
	}
	patternConf := confSum / weightSum
	return 0.5*baseConf + 0.5*patternConf
}

// recommendations emits strings keyed to the dominant contributing factor.
// No applied factors means no recommendations: a plain baseline needs no
// action.
func recommendations(applied []insight.AppliedFactor) []string {
	if len(applied) == 0 {
		return nil
	}
	sorted := make([]insight.AppliedFactor, len(applied))
	copy(sorted, applied)
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Contribution) > math.Abs(sorted[j].Contribution)
	})

	dominant := sorted[0]
	recs := []string{fmt.Sprintf("Dominant factor %s: %s", dominant.FactorShape, dominant.Description)}
	if len(sorted) > 1 {
		recs = append(recs, fmt.Sprintf("%d additional factors apply; combined adjustment is compounded, not summed", len(sorted)-1))
	}
	return recs
}

// bumpAppliedCounters increments each applied pattern's application
// counter, best effort: a stale version here is harmless and skipped.
func (e *Engine) bumpAppliedCounters(ctx context.Context, applied []insight.AppliedFactor) {
	for _, a := range applied {
		c, err := e.repo.GetByID(ctx, a.CorrelationID)
		if err != nil {
			continue
		}
		c.TimesApplied++
		if err := e.repo.Update(ctx, c); err != nil {
			e.log.Debug("application counter bump skipped for %s: %v", a.CorrelationID, err)
		}
	}
}

// hashFactors builds the deterministic cache key component for a factor
// set. Serialization order is normalized by sorting record JSON.
func hashFactors(df factor.DayFactors) string {
	parts := make([]string, 0, len(df))
	for _, r := range df {
		b, err := json.Marshal(r)
		if err != nil {
			continue
		}
		parts = append(parts, string(b))
	}
	sort.Strings(parts)
	joined, _ := json.Marshal(parts)
	return fmt.Sprintf("%x", md5.Sum(joined))
}
