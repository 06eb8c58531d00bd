package testkit

import (
	"testing"
	"time"

	"factorlens/domain/core"
)

func TestGenerate_DeterministicForSameSeed(t *testing.T) {
	cfg := DefaultGeneratorConfig("shop-1")
	cfg.Days = 14
	cfg.FactorsFor = HotDays(5, 95, 70)

	txsA, factorsA := NewGenerator(cfg).Generate()
	txsB, factorsB := NewGenerator(cfg).Generate()

	if len(txsA) != len(txsB) {
		t.Fatalf("transaction counts differ: %d vs %d", len(txsA), len(txsB))
	}
	for i := range txsA {
		if txsA[i].ID != txsB[i].ID || txsA[i].Total != txsB[i].Total || !txsA[i].OccurredAt.Equal(txsB[i].OccurredAt) {
			t.Fatalf("transaction %d differs between runs: %+v vs %+v", i, txsA[i], txsB[i])
		}
	}
	if len(factorsA) != 14 || len(factorsB) != 14 {
		t.Errorf("factor day counts = %d and %d, want 14", len(factorsA), len(factorsB))
	}
}

func TestGenerate_SeedChangesOutput(t *testing.T) {
	cfg := DefaultGeneratorConfig("shop-1")
	cfg.Days = 14
	other := cfg
	other.Seed = 7

	txsA, _ := NewGenerator(cfg).Generate()
	txsB, _ := NewGenerator(other).Generate()

	same := len(txsA) == len(txsB)
	if same {
		for i := range txsA {
			if txsA[i].Total != txsB[i].Total {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different seeds produced identical transactions")
	}
}

func TestGenerate_HotDayEffectLiftsMatchedDays(t *testing.T) {
	cfg := DefaultGeneratorConfig("shop-1")
	cfg.Days = 60
	cfg.RevenueJitter = 0 // isolate the effect
	cfg.FactorsFor = HotDays(5, 95, 70)
	cfg.Effects = []Effect{HotDayEffect(20)}

	txs, factors := NewGenerator(cfg).Generate()

	dayTotals := make(map[string]float64)
	for _, tx := range txs {
		dayTotals[core.DateKey(tx.OccurredAt)] += tx.Total
	}

	var hotSum, coldSum float64
	var hotDays, coldDays int
	for i := 0; i < cfg.Days; i++ {
		date := cfg.StartDate.AddDate(0, 0, i)
		key := core.DateKey(date)
		df := factors[key]
		hot := false
		for _, r := range df {
			if r.Weather != nil && r.Weather.TemperatureF >= 95 {
				hot = true
			}
		}
		if hot {
			hotSum += dayTotals[key]
			hotDays++
		} else {
			coldSum += dayTotals[key]
			coldDays++
		}
	}
	if hotDays == 0 || coldDays == 0 {
		t.Fatalf("fixture split = %d hot / %d cold days", hotDays, coldDays)
	}

	hotAvg := hotSum / float64(hotDays)
	coldAvg := coldSum / float64(coldDays)
	lift := 100 * (hotAvg - coldAvg) / coldAvg
	// Per-transaction jitter leaves the realized lift near but not
	// exactly at the configured 20.
	if lift < 15 || lift > 25 {
		t.Errorf("realized hot-day lift = %.2f%%, want about 20%%", lift)
	}
}

func TestGenerate_TransactionsStayInWindowAndHours(t *testing.T) {
	cfg := DefaultGeneratorConfig("shop-1")
	cfg.Days = 10
	txs, _ := NewGenerator(cfg).Generate()

	end := cfg.StartDate.AddDate(0, 0, cfg.Days)
	for _, tx := range txs {
		if tx.OccurredAt.Before(cfg.StartDate) || !tx.OccurredAt.Before(end) {
			t.Fatalf("transaction at %s falls outside the %d-day window", tx.OccurredAt, cfg.Days)
		}
		if h := tx.OccurredAt.Hour(); h < 8 || h > 20 {
			t.Errorf("transaction at hour %d, want business hours 8 through 20", h)
		}
		if tx.EntityID != cfg.EntityID {
			t.Errorf("transaction entity = %s, want %s", tx.EntityID, cfg.EntityID)
		}
		if tx.Total <= 0 {
			t.Errorf("transaction total = %.2f, want positive", tx.Total)
		}
	}
}

func TestHotDays_SpacingAndTemperatures(t *testing.T) {
	factorsFor := HotDays(7, 92, 70)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 21; i++ {
		df := factorsFor(start.AddDate(0, 0, i))
		if len(df) == 0 || df[0].Weather == nil {
			t.Fatalf("day %d has no weather record", i)
		}
		want := 70.0
		if i%7 == 0 {
			want = 92
		}
		if df[0].Weather.TemperatureF != want {
			t.Errorf("day %d temperature = %.0f, want %.0f", i, df[0].Weather.TemperatureF, want)
		}
	}
}
