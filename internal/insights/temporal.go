package insights

import (
	"context"
	"fmt"
	"math"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"

	"github.com/montanaflynn/stats"
)

// minDeviationPct is the smallest deviation-from-mean worth surfacing as a
// temporal pattern.
const minDeviationPct = 10.0

// temporalPatterns surfaces weekdays and hours whose average revenue
// deviates from the entity's own mean.
func (e *Engine) temporalPatterns(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]insight.TemporalPattern, error) {
	var patterns []insight.TemporalPattern

	weekdays, err := e.agg.RevenueByWeekday(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	if len(weekdays) >= 2 {
		avgs := make([]float64, len(weekdays))
		totalDays := 0
		for i, w := range weekdays {
			avgs[i] = w.AvgRevenue
			totalDays += w.Days
		}
		mean, _ := stats.Mean(avgs)
		if mean > 0 {
			for _, w := range weekdays {
				devPct := 100 * (w.AvgRevenue - mean) / mean
				if math.Abs(devPct) < minDeviationPct {
					continue
				}
				day := w.Weekday
				patterns = append(patterns, insight.TemporalPattern{
					Weekday:        &day,
					AvgRevenue:     w.AvgRevenue,
					DeviationPct:   devPct,
					Confidence:     sampleConfidence(totalDays),
					Recommendation: temporalRecommendation(day.String(), devPct),
				})
			}
		}
	}

	hours, err := e.agg.RevenueByHour(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	if len(hours) >= 2 {
		var avgs []float64
		for _, h := range hours {
			if h.Revenue > 0 {
				avgs = append(avgs, h.AvgRevenue)
			}
		}
		mean, _ := stats.Mean(avgs)
		if mean > 0 {
			for _, h := range hours {
				if h.Revenue == 0 {
					continue
				}
				devPct := 100 * (h.AvgRevenue - mean) / mean
				if math.Abs(devPct) < minDeviationPct {
					continue
				}
				hour := h.Hour
				patterns = append(patterns, insight.TemporalPattern{
					Hour:           &hour,
					AvgRevenue:     h.AvgRevenue,
					DeviationPct:   devPct,
					Confidence:     sampleConfidence(h.TxCount),
					Recommendation: temporalRecommendation(fmt.Sprintf("%02d:00", h.Hour), devPct),
				})
			}
		}
	}

	return patterns, nil
}

func temporalRecommendation(when string, devPct float64) string {
	if devPct > 0 {
		return fmt.Sprintf("%s runs %.1f%% above average; schedule peak staffing", when, devPct)
	}
	return fmt.Sprintf("%s runs %.1f%% below average; consider promotions or lighter staffing", when, -devPct)
}

// sampleConfidence is a bounded 0-100 score that grows with observation
// count and saturates at 50 observations.
func sampleConfidence(n int) float64 {
	return math.Min(95, 40+float64(n)*55.0/50.0)
}
