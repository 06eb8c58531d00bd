// Package discovery runs per-factor-type analyzers over normalized outcome
// rows, gates their findings on correlation strength and significance, and
// turns accepted findings into entity-scoped correlations.
package discovery

import (
	"context"
	"fmt"
	"math"

	"factorlens/domain/factor"
	"factorlens/domain/outcome"
	"factorlens/domain/stats"
	apperrors "factorlens/internal/errors"
)

// Finding is one analyzer's candidate relationship before the acceptance
// gate is applied.
type Finding struct {
	FactorType       factor.Type `json:"factor_type"`
	Shape            string      `json:"shape"`
	Coefficient      float64     `json:"coefficient"`
	PValue           float64     `json:"p_value"`
	SampleSize       int         `json:"sample_size"`
	MatchedDays      int         `json:"matched_days"`
	OutcomeValue     float64     `json:"outcome_value"`
	OutcomeChangePct float64     `json:"outcome_change_pct"`
	Description      string      `json:"description"`
	Recommendation   string      `json:"recommendation"`
}

// Analyzer examines one factor family over the normalized rows. Analyzers
// are pure over their inputs and safe to run concurrently.
type Analyzer interface {
	Name() string
	FactorType() factor.Type
	Analyze(ctx context.Context, rows []outcome.Row) ([]Finding, error)
}

// bucketFinding evaluates a named condition over the active rows: the
// outcome delta comes from the matched/unmatched bucket means, and the
// coefficient from Pearson over either a supplied continuous factor series
// or the binary condition indicator (point-biserial form). continuous may
// be nil, or must align 1:1 with rows, with NaN for days the factor is
// absent.
func bucketFinding(rows []outcome.Row, cond factor.Condition, continuous []float64) (Finding, error) {
	return splitFinding(rows, cond, nil, continuous)
}

// splitFinding is bucketFinding with the day split overridden by a
// row-level predicate. Used by the daypart shape, whose split is a
// property of the row's hourly distribution rather than its factor
// records.
func splitFinding(rows []outcome.Row, cond factor.Condition, matchRow func(outcome.Row) bool, continuous []float64) (Finding, error) {
	active := outcome.ActiveRows(rows)
	if len(active) < stats.MinSamplePairs {
		return Finding{}, apperrors.InsufficientData("too few active days")
	}
	if matchRow == nil {
		matchRow = func(row outcome.Row) bool { return cond.Matches(row.Factors) }
	}

	indicator := make([]float64, len(active))
	revenues := make([]float64, len(active))
	var matchedSum, unmatchedSum float64
	var matched, unmatched int
	for i, row := range active {
		revenues[i] = row.Revenue
		if matchRow(row) {
			indicator[i] = 1
			matchedSum += row.Revenue
			matched++
		} else {
			unmatchedSum += row.Revenue
			unmatched++
		}
	}
	if matched == 0 || unmatched == 0 {
		return Finding{}, apperrors.InsufficientData(fmt.Sprintf("condition %s never splits the period", cond.Shape))
	}

	matchedMean := matchedSum / float64(matched)
	unmatchedMean := unmatchedSum / float64(unmatched)
	if unmatchedMean == 0 {
		return Finding{}, apperrors.DegenerateInput("zero revenue outside the condition")
	}
	changePct := 100 * (matchedMean - unmatchedMean) / unmatchedMean

	series := indicator
	if continuous != nil {
		if len(continuous) != len(rows) {
			return Finding{}, apperrors.InvalidInput("continuous series does not align with rows")
		}
		series = alignActive(rows, continuous)
	}

	// A continuous series may carry NaN for factor-absent days; Pearson
	// drops those pairs, and the significance must be judged over the
	// pairs that survived.
	r, pairs, err := stats.Pearson(series, revenues)
	if err != nil {
		return Finding{}, err
	}
	p := stats.Significance(r, pairs)

	return Finding{
		FactorType:       cond.Type,
		Shape:            cond.Shape,
		Coefficient:      r,
		PValue:           p,
		SampleSize:       pairs,
		MatchedDays:      matched,
		OutcomeValue:     matchedMean,
		OutcomeChangePct: changePct,
		Description:      describeFinding(cond, changePct, pairs),
		Recommendation:   recommendFinding(cond, changePct),
	}, nil
}

// alignActive filters a full-row-aligned series down to active rows.
func alignActive(rows []outcome.Row, series []float64) []float64 {
	out := make([]float64, 0, len(series))
	for i, row := range rows {
		if row.HasActivity {
			out = append(out, series[i])
		}
	}
	return out
}

func describeFinding(cond factor.Condition, changePct float64, n int) string {
	direction := "higher"
	if changePct < 0 {
		direction = "lower"
	}
	return fmt.Sprintf("Revenue runs %.1f%% %s on days with %s (n=%d)",
		math.Abs(changePct), direction, cond.Label, n)
}

func recommendFinding(cond factor.Condition, changePct float64) string {
	if changePct >= 0 {
		return fmt.Sprintf("Increase staffing and stock when %s is expected (+%.1f%% revenue)",
			cond.Label, changePct)
	}
	return fmt.Sprintf("Reduce staffing or run promotions when %s is expected (%.1f%% revenue)",
		cond.Label, changePct)
}
