// Package outcome defines the per-day business outcome rows the analyzers
// consume, and the raw transaction shape they are derived from.
package outcome

import (
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
)

// LineItem is one item line on a transaction.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Transaction is a single sale as supplied by the external transaction
// source. The core never writes these.
type Transaction struct {
	ID         string        `json:"id"`
	EntityID   core.EntityID `json:"entity_id"`
	OccurredAt time.Time     `json:"occurred_at"`
	Total      float64       `json:"total"`
	Items      []LineItem    `json:"items,omitempty"`
	EmployeeID string        `json:"employee_id,omitempty"`
	CustomerID string        `json:"customer_id,omitempty"`
}

// Row is one analysis-ready day for one entity: the aggregate outcome
// joined with that day's external factors. Rows are derived on demand and
// never persisted independently.
type Row struct {
	EntityID         core.EntityID     `json:"entity_id"`
	Date             time.Time         `json:"date"`
	Revenue          float64           `json:"revenue"`
	TransactionCount int               `json:"transaction_count"`
	AvgTicket        float64           `json:"avg_ticket"`
	Weekday          time.Weekday      `json:"weekday"`
	HourlyRevenue    [24]float64       `json:"hourly_revenue"`
	HasActivity      bool              `json:"has_activity"`
	Factors          factor.DayFactors `json:"factors,omitempty"`
}

// DateKey returns the canonical day key of the row.
func (r Row) DateKey() string {
	return core.DateKey(r.Date)
}

// EveningShare returns the fraction of the day's revenue taken at or after
// the given hour. Zero-revenue days return 0.
func (r Row) EveningShare(fromHour int) float64 {
	if r.Revenue <= 0 {
		return 0
	}
	var evening float64
	for h := fromHour; h < 24; h++ {
		evening += r.HourlyRevenue[h]
	}
	return evening / r.Revenue
}

// Revenues extracts the revenue series from rows.
func Revenues(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Revenue
	}
	return out
}

// EveningSkewSplit returns the predicate marking rows whose evening
// revenue share exceeds the mean share across the given rows. Discovery
// and backtesting of the daypart pattern must split days through the same
// predicate; the day's own hourly distribution decides, not its factor
// records.
func EveningSkewSplit(rows []Row, fromHour int) func(Row) bool {
	if len(rows) == 0 {
		return func(Row) bool { return false }
	}
	var meanShare float64
	for _, r := range rows {
		meanShare += r.EveningShare(fromHour)
	}
	meanShare /= float64(len(rows))
	return func(r Row) bool { return r.EveningShare(fromHour) > meanShare }
}

// ActiveRows filters out zero-transaction days. Those days are valid "no
// business" observations for some analyzers and noise for others, so the
// choice is made per call site.
func ActiveRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.HasActivity {
			out = append(out, r)
		}
	}
	return out
}
