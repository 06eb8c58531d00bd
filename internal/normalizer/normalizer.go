// Package normalizer joins per-day business outcomes with per-day external
// factor records into analysis-ready rows. It is a pure transform: no I/O,
// no side effects.
package normalizer

import (
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
	"factorlens/domain/outcome"
)

// Normalize produces exactly one row per day of [start, end] for the
// entity, aggregating its transactions and attaching that day's factors.
// Days with no transactions are retained as valid "no business"
// observations, flagged HasActivity=false so analyzers can exclude them
// where appropriate. A day-of-week factor record is injected for every day
// so temporal conditions always have something to match.
func Normalize(
	entityID core.EntityID,
	transactions []outcome.Transaction,
	factorsByDate map[string]factor.DayFactors,
	start, end time.Time,
) []outcome.Row {
	type dayAgg struct {
		revenue float64
		count   int
		hourly  [24]float64
	}

	byDay := make(map[string]*dayAgg)
	for _, tx := range transactions {
		key := core.DateKey(tx.OccurredAt)
		agg, ok := byDay[key]
		if !ok {
			agg = &dayAgg{}
			byDay[key] = agg
		}
		agg.revenue += tx.Total
		agg.count++
		agg.hourly[tx.OccurredAt.UTC().Hour()] += tx.Total
	}

	days := core.DaysBetween(start, end)
	rows := make([]outcome.Row, 0, len(days))
	for _, day := range days {
		key := core.DateKey(day)
		row := outcome.Row{
			EntityID: entityID,
			Date:     day,
			Weekday:  day.Weekday(),
			Factors:  withWeekday(factorsByDate[key], day),
		}
		if agg, ok := byDay[key]; ok && agg.count > 0 {
			row.Revenue = agg.revenue
			row.TransactionCount = agg.count
			row.AvgTicket = agg.revenue / float64(agg.count)
			row.HourlyRevenue = agg.hourly
			row.HasActivity = true
		}
		rows = append(rows, row)
	}
	return rows
}

// withWeekday attaches a day-of-week record unless one is already present.
func withWeekday(df factor.DayFactors, day time.Time) factor.DayFactors {
	for _, r := range df {
		if r.Type == factor.TypeDayOfWeek {
			return df
		}
	}
	out := make(factor.DayFactors, 0, len(df)+1)
	out = append(out, df...)
	out = append(out, factor.Record{
		Type:      factor.TypeDayOfWeek,
		Date:      day,
		DayOfWeek: &factor.DayOfWeek{Weekday: day.Weekday()},
	})
	return out
}
