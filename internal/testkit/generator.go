// Package testkit generates deterministic synthetic transaction and factor
// fixtures with injectable factor effects, so discovery and forecast tests
// can assert on known-relationship data.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
	"factorlens/domain/outcome"
)

// Effect injects a revenue multiplier on days where Applies holds. An
// Effect with LiftPct 20 makes matching days earn 20% more.
type Effect struct {
	Name    string
	LiftPct float64
	Applies func(date time.Time, df factor.DayFactors) bool
}

// GeneratorConfig configures the fixture generator. The same config and
// seed always produce the same dataset.
type GeneratorConfig struct {
	EntityID        core.EntityID
	StartDate       time.Time
	Days            int
	BaseRevenue     float64
	RevenueJitter   float64
	AvgTransactions int
	EmployeeCount   int
	CustomerCount   int
	MenuItems       []string
	Seed            int64
	Effects         []Effect

	// FactorsFor supplies the external factors for each day. Nil means
	// every day has no factors beyond what the normalizer injects.
	FactorsFor func(date time.Time) factor.DayFactors
}

// DefaultGeneratorConfig returns a 90-day fixture with mild noise.
func DefaultGeneratorConfig(entityID core.EntityID) GeneratorConfig {
	return GeneratorConfig{
		EntityID:        entityID,
		StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:            90,
		BaseRevenue:     2000,
		RevenueJitter:   0.05,
		AvgTransactions: 40,
		EmployeeCount:   6,
		CustomerCount:   120,
		MenuItems:       []string{"coffee", "latte", "croissant", "muffin", "sandwich", "salad", "cookie", "tea"},
		Seed:            42,
	}
}

// Generator produces transactions and day factors from a config.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a generator seeded from the config.
func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Generate returns the full fixture: transactions for every day of the
// window and the factor records keyed by day key.
func (g *Generator) Generate() ([]outcome.Transaction, map[string]factor.DayFactors) {
	var txs []outcome.Transaction
	factors := make(map[string]factor.DayFactors)
	for i := 0; i < g.cfg.Days; i++ {
		date := g.cfg.StartDate.AddDate(0, 0, i)
		df := g.factorsFor(date)
		factors[core.DateKey(date)] = df
		txs = append(txs, g.generateDay(date, df)...)
	}
	return txs, factors
}

func (g *Generator) factorsFor(date time.Time) factor.DayFactors {
	if g.cfg.FactorsFor == nil {
		return nil
	}
	return g.cfg.FactorsFor(date)
}

// generateDay splits the day's target revenue across a jittered number of
// transactions spread over business hours.
func (g *Generator) generateDay(date time.Time, df factor.DayFactors) []outcome.Transaction {
	target := g.cfg.BaseRevenue * (1 + g.cfg.RevenueJitter*(2*g.rng.Float64()-1))
	for _, e := range g.cfg.Effects {
		if e.Applies != nil && e.Applies(date, df) {
			target *= 1 + e.LiftPct/100
		}
	}

	count := g.cfg.AvgTransactions + int(math.Round(g.rng.NormFloat64()*float64(g.cfg.AvgTransactions)/10))
	if count < 1 {
		count = 1
	}
	avg := target / float64(count)

	txs := make([]outcome.Transaction, 0, count)
	for i := 0; i < count; i++ {
		hour := 8 + g.rng.Intn(13)
		minute := g.rng.Intn(60)
		total := avg * (0.5 + g.rng.Float64())
		tx := outcome.Transaction{
			ID:         fmt.Sprintf("%s-%s-%03d", g.cfg.EntityID, core.DateKey(date), i),
			EntityID:   g.cfg.EntityID,
			OccurredAt: time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC),
			Total:      total,
			Items:      g.pickItems(total),
		}
		if g.cfg.EmployeeCount > 0 {
			tx.EmployeeID = fmt.Sprintf("emp_%02d", g.rng.Intn(g.cfg.EmployeeCount)+1)
		}
		// Roughly half of visits are identified customers.
		if g.cfg.CustomerCount > 0 && g.rng.Float64() < 0.5 {
			tx.CustomerID = fmt.Sprintf("cust_%04d", g.rng.Intn(g.cfg.CustomerCount)+1)
		}
		txs = append(txs, tx)
	}
	return txs
}

func (g *Generator) pickItems(total float64) []outcome.LineItem {
	if len(g.cfg.MenuItems) == 0 {
		return nil
	}
	n := 1 + g.rng.Intn(3)
	items := make([]outcome.LineItem, 0, n)
	share := total / float64(n)
	for i := 0; i < n; i++ {
		items = append(items, outcome.LineItem{
			Name:     g.cfg.MenuItems[g.rng.Intn(len(g.cfg.MenuItems))],
			Quantity: 1,
			Price:    share,
		})
	}
	return items
}

// HotDays returns a FactorsFor function that marks every nth day with the
// given temperature and leaves the rest at the base temperature.
func HotDays(every int, hotTempF, baseTempF float64) func(time.Time) factor.DayFactors {
	start := time.Time{}
	return func(date time.Time) factor.DayFactors {
		if start.IsZero() {
			start = date
		}
		day := int(date.Sub(start).Hours() / 24)
		temp := baseTempF
		if every > 0 && day%every == 0 {
			temp = hotTempF
		}
		return factor.DayFactors{{
			Type:    factor.TypeWeather,
			Date:    date,
			Weather: &factor.Weather{TemperatureF: temp, Condition: "clear"},
		}}
	}
}

// HotDayEffect pairs with HotDays: it lifts revenue on days whose weather
// record is at or above the hot threshold.
func HotDayEffect(liftPct float64) Effect {
	return Effect{
		Name:    "hot_day_lift",
		LiftPct: liftPct,
		Applies: func(_ time.Time, df factor.DayFactors) bool {
			w := df.Weather()
			return w != nil && w.TemperatureF >= factor.HotDayTempF
		},
	}
}

// WeekendEffect lifts revenue on Saturdays and Sundays.
func WeekendEffect(liftPct float64) Effect {
	return Effect{
		Name:    "weekend_lift",
		LiftPct: liftPct,
		Applies: func(date time.Time, _ factor.DayFactors) bool {
			wd := date.Weekday()
			return wd == time.Saturday || wd == time.Sunday
		},
	}
}
