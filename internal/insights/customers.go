package insights

import (
	"context"
	"fmt"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/insight"
)

// customerPattern computes the new-vs-returning split where transactions
// carry a customer identifier. Entities without identified customers get
// no section rather than a fabricated one.
func (e *Engine) customerPattern(ctx context.Context, entityID core.EntityID, start, end time.Time) (*insight.CustomerPattern, error) {
	agg, err := e.agg.CustomerSplit(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	if agg.IdentifiedCustomers == 0 {
		return nil, nil
	}

	newCustomers := agg.IdentifiedCustomers - agg.ReturningCustomers
	returningShare := 100 * float64(agg.ReturningCustomers) / float64(agg.IdentifiedCustomers)
	avgVisits := float64(agg.TotalVisits) / float64(agg.IdentifiedCustomers)

	rec := fmt.Sprintf("%.1f%% of identified customers returned this period", returningShare)
	if returningShare < 30 {
		rec += "; retention is the growth lever, consider a loyalty push"
	} else if returningShare > 60 {
		rec += "; strong regular base, protect peak-hour experience"
	}

	return &insight.CustomerPattern{
		NewCustomers:       newCustomers,
		ReturningCustomers: agg.ReturningCustomers,
		ReturningSharePct:  returningShare,
		AvgVisitsPerCust:   avgVisits,
		Recommendation:     rec,
	}, nil
}
