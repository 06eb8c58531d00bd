package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"
)

// minRatedShifts is the shift count below which an employee rating is not
// trusted and reported as 0.
const minRatedShifts = 5

// employeePatterns rates each employee against the entity's own
// revenue-per-shift distribution. Ratings are quintile ranks, not absolute
// benchmarks, so entities are never compared to each other here.
func (e *Engine) employeePatterns(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]insight.EmployeePattern, error) {
	aggs, err := e.agg.EmployeeAggregates(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	if len(aggs) == 0 {
		return nil, nil
	}

	// Distribution of revenue-per-shift across rateable employees.
	var rps []float64
	for _, a := range aggs {
		if a.Shifts >= minRatedShifts {
			rps = append(rps, a.Revenue/float64(a.Shifts))
		}
	}
	sort.Float64s(rps)

	patterns := make([]insight.EmployeePattern, 0, len(aggs))
	for _, a := range aggs {
		if a.EmployeeID == "" || a.Shifts == 0 {
			continue
		}
		perShift := a.Revenue / float64(a.Shifts)
		p := insight.EmployeePattern{
			EmployeeID:      a.EmployeeID,
			AvgTicket:       a.AvgTicket,
			RevenuePerShift: perShift,
			Shifts:          a.Shifts,
		}
		if a.Shifts >= minRatedShifts && len(rps) >= 2 {
			p.Rating = quintileRating(perShift, rps)
			switch {
			case p.Rating >= 4:
				p.Recommendation = fmt.Sprintf("Top performer (%.0f/shift); schedule on peak days", perShift)
			case p.Rating <= 2:
				p.Recommendation = fmt.Sprintf("Below entity median (%.0f/shift); consider coaching or pairing", perShift)
			default:
				p.Recommendation = "Performing at entity median"
			}
		} else {
			p.Recommendation = fmt.Sprintf("Only %d shifts in period; rating withheld until %d", a.Shifts, minRatedShifts)
		}
		patterns = append(patterns, p)
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].RevenuePerShift > patterns[j].RevenuePerShift
	})
	return patterns, nil
}

// quintileRating maps a value to its 1-5 quintile within a sorted sample.
func quintileRating(value float64, sorted []float64) int {
	below := 0
	for _, v := range sorted {
		if v < value {
			below++
		}
	}
	frac := float64(below) / float64(len(sorted))
	rating := 1 + int(frac*5)
	if rating > 5 {
		rating = 5
	}
	return rating
}
