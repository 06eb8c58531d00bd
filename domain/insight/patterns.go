// Package insight defines the entity-only pattern types produced from
// aggregated transactions alone, and the forecast output shape.
package insight

import (
	"time"

	"factorlens/domain/core"
)

// PatternType tags the internal pattern variants.
type PatternType string

const (
	PatternTemporal PatternType = "temporal"
	PatternEmployee PatternType = "employee"
	PatternMenu     PatternType = "menu"
	PatternCustomer PatternType = "customer"
	PatternVelocity PatternType = "velocity"
)

// TemporalPattern is a weekday or hour whose revenue deviates from the
// entity's own mean.
type TemporalPattern struct {
	Weekday        *time.Weekday `json:"weekday,omitempty"`
	Hour           *int          `json:"hour,omitempty"`
	AvgRevenue     float64       `json:"avg_revenue"`
	DeviationPct   float64       `json:"deviation_pct"`
	Confidence     float64       `json:"confidence"`
	Recommendation string        `json:"recommendation"`
}

// EmployeePattern rates one employee against the entity's own distribution.
type EmployeePattern struct {
	EmployeeID      string  `json:"employee_id"`
	AvgTicket       float64 `json:"avg_ticket"`
	RevenuePerShift float64 `json:"revenue_per_shift"`
	Shifts          int     `json:"shifts"`
	Rating          int     `json:"rating"` // 1-5 relative to entity distribution; 0 below shift gate
	Recommendation  string  `json:"recommendation"`
}

// MenuPattern covers item pairing and attach-rate findings.
type MenuPattern struct {
	Kind           string   `json:"kind"` // "pair" or "low_attach"
	Items          []string `json:"items"`
	Occurrences    int      `json:"occurrences"`
	AttachRatePct  float64  `json:"attach_rate_pct,omitempty"`
	ImpactEstimate float64  `json:"impact_estimate"`
	Recommendation string   `json:"recommendation"`
}

// CustomerPattern is the new-vs-returning split where an identifier exists.
type CustomerPattern struct {
	NewCustomers       int     `json:"new_customers"`
	ReturningCustomers int     `json:"returning_customers"`
	ReturningSharePct  float64 `json:"returning_share_pct"`
	AvgVisitsPerCust   float64 `json:"avg_visits_per_customer"`
	Recommendation     string  `json:"recommendation"`
}

// Velocity classification labels.
const (
	VelocityAccelerating = "accelerating"
	VelocitySteady       = "steady"
	VelocityDecelerating = "decelerating"
)

// VelocityPattern classifies the revenue trajectory over a trailing window
// and carries a naive next-period projection.
type VelocityPattern struct {
	Classification      string   `json:"classification"`
	TrailingChangePct   float64  `json:"trailing_change_pct"`
	NextPeriodProjected float64  `json:"next_period_projected"`
	Confidence          float64  `json:"confidence"`
	Insights            []string `json:"insights"`
}

// PatternSet is the full internal-pattern output for one run. Sets are
// regenerated wholesale per run and carry no cross-run identity.
type PatternSet struct {
	EntityID    core.EntityID     `json:"entity_id"`
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	Temporal    []TemporalPattern `json:"temporal"`
	Employees   []EmployeePattern `json:"employees"`
	Menu        []MenuPattern     `json:"menu"`
	Customers   *CustomerPattern  `json:"customers,omitempty"`
	Velocity    *VelocityPattern  `json:"velocity,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}
