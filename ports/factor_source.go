package ports

import (
	"context"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
)

// FactorSource supplies pre-resolved external factor records for an
// entity's location. Raw weather/event/holiday/sports API clients live
// upstream of this port.
type FactorSource interface {
	// FactorsForDate returns the factor records for one day.
	FactorsForDate(ctx context.Context, entityID core.EntityID, date time.Time) (factor.DayFactors, error)

	// FactorsForRange returns factor records keyed by canonical day key
	// (core.DateKey) for each day of the range.
	FactorsForRange(ctx context.Context, entityID core.EntityID, start, end time.Time) (map[string]factor.DayFactors, error)
}
