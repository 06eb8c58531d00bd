package ports

import (
	"context"
	"time"

	"factorlens/domain/core"
)

// WeekdayAgg is revenue grouped by weekday, computed store-side.
type WeekdayAgg struct {
	Weekday    time.Weekday `db:"weekday"`
	Days       int          `db:"days"`
	Revenue    float64      `db:"revenue"`
	TxCount    int          `db:"tx_count"`
	AvgRevenue float64      `db:"avg_revenue"`
}

// HourAgg is revenue grouped by hour of day.
type HourAgg struct {
	Hour       int     `db:"hour"`
	Revenue    float64 `db:"revenue"`
	TxCount    int     `db:"tx_count"`
	AvgRevenue float64 `db:"avg_revenue"`
}

// EmployeeAgg is the per-employee aggregate: shifts are distinct working
// days.
type EmployeeAgg struct {
	EmployeeID string  `db:"employee_id"`
	TxCount    int     `db:"tx_count"`
	Revenue    float64 `db:"revenue"`
	Shifts     int     `db:"shifts"`
	AvgTicket  float64 `db:"avg_ticket"`
}

// ItemAgg counts how many transactions carried an item.
type ItemAgg struct {
	Item    string `db:"item"`
	TxCount int    `db:"tx_count"`
}

// ItemPairAgg counts transactions carrying both items of a pair.
type ItemPairAgg struct {
	ItemA   string `db:"item_a"`
	ItemB   string `db:"item_b"`
	TxCount int    `db:"tx_count"`
}

// CustomerAgg is the identified-customer split for a period.
type CustomerAgg struct {
	IdentifiedCustomers int `db:"identified_customers"`
	ReturningCustomers  int `db:"returning_customers"`
	TotalVisits         int `db:"total_visits"`
}

// DayRevenue is one day's revenue total.
type DayRevenue struct {
	Date    time.Time `db:"date"`
	Revenue float64   `db:"revenue"`
	TxCount int       `db:"tx_count"`
}

// BaselineAgg is the historical expectation for one weekday over a
// trailing window.
type BaselineAgg struct {
	AvgRevenue float64 `db:"avg_revenue"`
	Days       int     `db:"days"`
}

// AggregationStore executes the group-by queries the internal pattern and
// prediction engines are built on. Aggregation happens store-side; the
// core never materializes per-row transaction sets for these paths.
type AggregationStore interface {
	RevenueByWeekday(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]WeekdayAgg, error)
	RevenueByHour(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]HourAgg, error)
	EmployeeAggregates(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]EmployeeAgg, error)
	ItemCounts(ctx context.Context, entityID core.EntityID, start, end time.Time, limit int) ([]ItemAgg, error)
	ItemPairCounts(ctx context.Context, entityID core.EntityID, start, end time.Time, limit int) ([]ItemPairAgg, error)
	CustomerSplit(ctx context.Context, entityID core.EntityID, start, end time.Time) (CustomerAgg, error)
	DailyRevenue(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]DayRevenue, error)
	WeekdayBaseline(ctx context.Context, entityID core.EntityID, weekday time.Weekday, start, end time.Time) (BaselineAgg, error)
}
