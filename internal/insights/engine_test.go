package insights

import (
	"context"
	"fmt"
	"testing"
	"time"

	"factorlens/adapters/memory"
	"factorlens/domain/core"
	"factorlens/domain/insight"
	"factorlens/domain/outcome"
	"factorlens/internal"
)

var (
	periodStart = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // a Monday
	periodEnd   = periodStart.AddDate(0, 0, 27)
)

func newEngineOver(source *memory.TransactionSource) *Engine {
	return NewEngine(memory.NewAggregationStore(source), internal.NewDefaultLogger())
}

var txSeq int

func tx(entityID core.EntityID, day time.Time, hour int, total float64, employee, customer string, items ...string) outcome.Transaction {
	txSeq++
	t := outcome.Transaction{
		ID:         fmt.Sprintf("tx-%d", txSeq),
		EntityID:   entityID,
		OccurredAt: day.Add(time.Duration(hour) * time.Hour),
		Total:      total,
		EmployeeID: employee,
		CustomerID: customer,
	}
	for _, name := range items {
		t.Items = append(t.Items, outcome.LineItem{Name: name, Quantity: 1, Price: total / float64(len(items))})
	}
	return t
}

func TestTemporalPatterns_FlagDeviantWeekday(t *testing.T) {
	entityID := core.EntityID("shop-1")
	source := memory.NewTransactionSource()
	// Four weeks: every day earns 1000 except Saturdays at 1600.
	for i := 0; i < 28; i++ {
		day := periodStart.AddDate(0, 0, i)
		total := 1000.0
		if day.Weekday() == time.Saturday {
			total = 1600
		}
		source.Add(entityID, tx(entityID, day, 12, total, "emp-1", ""))
	}

	set, err := newEngineOver(source).InternalPatterns(context.Background(), entityID, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("InternalPatterns: %v", err)
	}

	var saturday *insight.TemporalPattern
	for i, p := range set.Temporal {
		if p.Weekday != nil && *p.Weekday == time.Saturday {
			saturday = &set.Temporal[i]
		}
		if p.Weekday != nil && *p.Weekday == time.Monday {
			t.Errorf("Monday sits near the mean and should not be flagged (deviation %.1f%%)", p.DeviationPct)
		}
	}
	if saturday == nil {
		t.Fatal("Saturday runs 60% above the other days and should be flagged")
	}
	if saturday.DeviationPct <= 10 {
		t.Errorf("Saturday deviation = %.1f%%, want well above the 10%% floor", saturday.DeviationPct)
	}
	if saturday.Recommendation == "" {
		t.Error("flagged weekday should carry a recommendation")
	}
}

func TestTemporalPatterns_FlagPeakHour(t *testing.T) {
	entityID := core.EntityID("shop-1")
	source := memory.NewTransactionSource()
	// Hours 9 through 16 at 100 per transaction, noon at 300.
	for i := 0; i < 14; i++ {
		day := periodStart.AddDate(0, 0, i)
		for hour := 9; hour <= 16; hour++ {
			total := 100.0
			if hour == 12 {
				total = 300
			}
			source.Add(entityID, tx(entityID, day, hour, total, "emp-1", ""))
		}
	}

	set, err := newEngineOver(source).InternalPatterns(context.Background(), entityID, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("InternalPatterns: %v", err)
	}

	foundNoon := false
	for _, p := range set.Temporal {
		if p.Hour != nil && *p.Hour == 12 {
			foundNoon = true
			if p.DeviationPct <= 0 {
				t.Errorf("noon deviation = %.1f%%, want positive", p.DeviationPct)
			}
		}
	}
	if !foundNoon {
		t.Error("the 3x noon hour should surface as a temporal pattern")
	}
}

func TestEmployeePatterns_QuintileRatingAndShiftFloor(t *testing.T) {
	entityID := core.EntityID("shop-1")
	source := memory.NewTransactionSource()
	// Five employees over 10 shifts each with spread revenue-per-shift,
	// plus one with too few shifts to rate.
	perShift := map[string]float64{
		"emp-a": 500, "emp-b": 400, "emp-c": 300, "emp-d": 200, "emp-e": 100,
	}
	for emp, total := range perShift {
		for i := 0; i < 10; i++ {
			day := periodStart.AddDate(0, 0, i)
			source.Add(entityID, tx(entityID, day, 12, total, emp, ""))
		}
	}
	source.Add(entityID, tx(entityID, periodStart, 12, 900, "emp-new", ""))
	source.Add(entityID, tx(entityID, periodStart.AddDate(0, 0, 1), 12, 900, "emp-new", ""))

	set, err := newEngineOver(source).InternalPatterns(context.Background(), entityID, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("InternalPatterns: %v", err)
	}

	byID := make(map[string]insight.EmployeePattern)
	for _, p := range set.Employees {
		byID[p.EmployeeID] = p
	}
	if byID["emp-a"].Rating != 5 {
		t.Errorf("top revenue-per-shift employee rated %d, want 5", byID["emp-a"].Rating)
	}
	if byID["emp-e"].Rating != 1 {
		t.Errorf("bottom employee rated %d, want 1", byID["emp-e"].Rating)
	}
	if got := byID["emp-new"].Rating; got != 0 {
		t.Errorf("employee with 2 shifts rated %d, want rating withheld", got)
	}
	if byID["emp-b"].RevenuePerShift != 400 {
		t.Errorf("emp-b revenue per shift = %.0f, want 400", byID["emp-b"].RevenuePerShift)
	}

	// Sorted by revenue per shift descending; the unrated newcomer's 900
	// per shift still sorts first.
	if len(set.Employees) != 6 || set.Employees[0].EmployeeID != "emp-new" {
		t.Errorf("employee ordering unexpected: %+v", set.Employees)
	}
}

func TestMenuPatterns_PairLiftAndLowAttach(t *testing.T) {
	entityID := core.EntityID("shop-1")
	source := memory.NewTransactionSource()
	// 40 transactions: latte in 30, croissant always with latte (12),
	// muffin in 10 of which only 1 alongside latte.
	n := 0
	add := func(items ...string) {
		day := periodStart.AddDate(0, 0, n%28)
		n++
		source.Add(entityID, tx(entityID, day, 10, 12, "emp-1", "", items...))
	}
	for i := 0; i < 12; i++ {
		add("latte", "croissant")
	}
	for i := 0; i < 17; i++ {
		add("latte")
	}
	add("latte", "muffin")
	for i := 0; i < 9; i++ {
		add("muffin")
	}
	add("tea")

	set, err := newEngineOver(source).InternalPatterns(context.Background(), entityID, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("InternalPatterns: %v", err)
	}

	var pair, lowAttach *insight.MenuPattern
	for i, p := range set.Menu {
		switch p.Kind {
		case "pair":
			pair = &set.Menu[i]
		case "low_attach":
			lowAttach = &set.Menu[i]
		}
	}
	if pair == nil {
		t.Fatal("latte+croissant co-occur 12 times in 40 transactions and should flag as a pair")
	}
	// lift = 12 * 40 / (30 * 12)
	if pair.ImpactEstimate < 1.2 {
		t.Errorf("pair lift = %.2f, want at least 1.2", pair.ImpactEstimate)
	}
	if lowAttach == nil {
		t.Fatal("muffin's best pair lift sits far below independence and should flag low attach")
	}
	if lowAttach.Items[0] != "muffin" {
		t.Errorf("low-attach item = %q, want muffin", lowAttach.Items[0])
	}
}

func TestCustomerPattern_SplitAndShare(t *testing.T) {
	entityID := core.EntityID("shop-1")
	source := memory.NewTransactionSource()
	// 10 identified customers, 4 of whom visit twice; plus anonymous
	// walk-ins that must not count.
	for i := 0; i < 10; i++ {
		cust := fmt.Sprintf("cust-%d", i)
		source.Add(entityID, tx(entityID, periodStart.AddDate(0, 0, i), 12, 20, "emp-1", cust))
		if i < 4 {
			source.Add(entityID, tx(entityID, periodStart.AddDate(0, 0, i+14), 12, 20, "emp-1", cust))
		}
	}
	for i := 0; i < 5; i++ {
		source.Add(entityID, tx(entityID, periodStart.AddDate(0, 0, i), 13, 15, "emp-1", ""))
	}

	set, err := newEngineOver(source).InternalPatterns(context.Background(), entityID, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("InternalPatterns: %v", err)
	}
	cp := set.Customers
	if cp == nil {
		t.Fatal("identified customers present, want a customer section")
	}
	if cp.NewCustomers != 6 || cp.ReturningCustomers != 4 {
		t.Errorf("split = %d new / %d returning, want 6/4", cp.NewCustomers, cp.ReturningCustomers)
	}
	if cp.ReturningSharePct != 40 {
		t.Errorf("returning share = %.1f%%, want 40%%", cp.ReturningSharePct)
	}
	if cp.AvgVisitsPerCust != 1.4 {
		t.Errorf("avg visits = %.2f, want 1.40", cp.AvgVisitsPerCust)
	}
}

func TestCustomerPattern_OmittedWithoutIdentifiedCustomers(t *testing.T) {
	entityID := core.EntityID("shop-1")
	source := memory.NewTransactionSource()
	for i := 0; i < 6; i++ {
		source.Add(entityID, tx(entityID, periodStart.AddDate(0, 0, i), 12, 20, "emp-1", ""))
	}

	set, err := newEngineOver(source).InternalPatterns(context.Background(), entityID, periodStart, periodEnd)
	if err != nil {
		t.Fatalf("InternalPatterns: %v", err)
	}
	if set.Customers != nil {
		t.Errorf("anonymous-only entity grew a customer section: %+v", set.Customers)
	}
}

func TestVelocityPattern_ClassifiesTrajectory(t *testing.T) {
	cases := []struct {
		name       string
		secondHalf float64
		want       string
	}{
		{"accelerating", 1300, insight.VelocityAccelerating},
		{"steady", 1050, insight.VelocitySteady},
		{"decelerating", 700, insight.VelocityDecelerating},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entityID := core.EntityID("shop-1")
			source := memory.NewTransactionSource()
			for i := 0; i < 28; i++ {
				total := 1000.0
				if i >= 14 {
					total = tc.secondHalf
				}
				source.Add(entityID, tx(entityID, periodStart.AddDate(0, 0, i), 12, total, "emp-1", ""))
			}

			set, err := newEngineOver(source).InternalPatterns(context.Background(), entityID, periodStart, periodEnd)
			if err != nil {
				t.Fatalf("InternalPatterns: %v", err)
			}
			if set.Velocity == nil {
				t.Fatal("28 active days should produce a velocity section")
			}
			if set.Velocity.Classification != tc.want {
				t.Errorf("classification = %s, want %s (trailing change %.1f%%)",
					set.Velocity.Classification, tc.want, set.Velocity.TrailingChangePct)
			}
		})
	}
}
