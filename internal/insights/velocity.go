package insights

import (
	"context"
	"fmt"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"

	"github.com/montanaflynn/stats"
)

// velocitySteadyBandPct is the trailing-change band classified as steady.
const velocitySteadyBandPct = 10.0

// velocityPattern classifies the revenue trajectory by comparing the two
// halves of the trailing window and projects the next period naively from
// the trailing change.
func (e *Engine) velocityPattern(ctx context.Context, entityID core.EntityID, start, end time.Time) (*insight.VelocityPattern, error) {
	days, err := e.agg.DailyRevenue(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	if len(days) < 4 {
		return nil, nil
	}

	half := len(days) / 2
	var first, second []float64
	for i, d := range days {
		if i < half {
			first = append(first, d.Revenue)
		} else {
			second = append(second, d.Revenue)
		}
	}
	firstMean, _ := stats.Mean(first)
	secondMean, _ := stats.Mean(second)
	if firstMean == 0 {
		return nil, nil
	}

	changePct := 100 * (secondMean - firstMean) / firstMean
	classification := insight.VelocitySteady
	switch {
	case changePct > velocitySteadyBandPct:
		classification = insight.VelocityAccelerating
	case changePct < -velocitySteadyBandPct:
		classification = insight.VelocityDecelerating
	}

	secondSum, _ := stats.Sum(second)
	projected := secondSum * (1 + changePct/100)

	insights := []string{
		fmt.Sprintf("Revenue is %s: second half of the window ran %.1f%% vs the first", classification, changePct),
		fmt.Sprintf("Naive projection for the next %d days: %.0f", len(days)-half, projected),
	}
	if classification == insight.VelocityDecelerating {
		insights = append(insights, "Deceleration over a trailing window often precedes a flat month; review recent menu or staffing changes")
	}

	return &insight.VelocityPattern{
		Classification:      classification,
		TrailingChangePct:   changePct,
		NextPeriodProjected: projected,
		Confidence:          sampleConfidence(len(days)),
		Insights:            insights,
	}, nil
}
