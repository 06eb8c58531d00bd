package correlation

import (
	"testing"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
)

func sampleDiscovery(entityID core.EntityID) Discovery {
	return Discovery{
		EntityID:         entityID,
		FactorType:       factor.TypeWeather,
		FactorShape:      "temp_above_85",
		Coefficient:      0.42,
		PValue:           0.01,
		SampleSize:       60,
		OutcomeValue:     2400,
		OutcomeChangePct: 20,
		Description:      "Revenue runs 20% above typical on days over 85F",
		Recommendation:   "Staff up and stock cold drinks on hot days",
	}
}

func TestNewFromDiscovery_SeedsDerivedFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewFromDiscovery(sampleDiscovery("shop-1"), now)

	if c.Scope != ScopeEntity {
		t.Errorf("Expected entity scope, got %s", c.Scope)
	}
	if c.Version != 1 {
		t.Errorf("New correlation should start at version 1, got %d", c.Version)
	}
	if !c.IsActive {
		t.Error("New correlation should be active")
	}
	if c.Confidence <= 0 || c.Confidence > 100 {
		t.Errorf("Seed confidence out of range: %f", c.Confidence)
	}
	if c.RSquared != c.Coefficient*c.Coefficient {
		t.Errorf("RSquared should derive from coefficient, got %f", c.RSquared)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("New correlation should validate: %v", err)
	}
}

func TestRefresh_PreservesConfidenceAfterBacktests(t *testing.T) {
	now := time.Now().UTC()
	c := NewFromDiscovery(sampleDiscovery("shop-1"), now)

	c.RecordBacktest(true, 100, now)
	confidenceAfterTrial := c.Confidence

	d := sampleDiscovery("shop-1")
	d.Coefficient = 0.6
	d.PValue = 0.001
	c.Refresh(d, now)

	if c.Confidence != confidenceAfterTrial {
		t.Errorf("Refresh must not reseed confidence once backtests exist: %f != %f",
			c.Confidence, confidenceAfterTrial)
	}
	if c.Coefficient != 0.6 {
		t.Errorf("Refresh should update statistics, got coefficient %f", c.Coefficient)
	}
}

// Accuracy below 40% over more than 20 trials retires the pattern, and no
// later backtest reactivates it.
func TestRecordBacktest_DeactivationLatch(t *testing.T) {
	now := time.Now().UTC()
	c := NewFromDiscovery(sampleDiscovery("shop-1"), now)

	// 7 confirms then 14 refutes: 21 trials at 33% accuracy.
	for i := 0; i < 7; i++ {
		c.RecordBacktest(true, 100, now)
	}
	var deactivated bool
	for i := 0; i < 14; i++ {
		if c.RecordBacktest(false, 100, now) {
			deactivated = true
		}
	}
	if !deactivated {
		t.Fatal("Expected deactivation once accuracy<40%% with >20 trials")
	}
	if c.IsActive {
		t.Error("Pattern should be inactive after deactivation")
	}

	// Confirmations keep counting but never reactivate.
	for i := 0; i < 50; i++ {
		if c.RecordBacktest(true, 100, now) {
			t.Error("RecordBacktest must not report deactivation on an inactive pattern")
		}
	}
	if c.IsActive {
		t.Error("Backtests must never reactivate a retired pattern")
	}
}

func TestRecordBacktest_NoDeactivationAtBoundary(t *testing.T) {
	now := time.Now().UTC()
	c := NewFromDiscovery(sampleDiscovery("shop-1"), now)

	// Exactly 20 trials at 35% accuracy: below the accuracy bar but not
	// past the trial bar, which requires strictly more than 20.
	for i := 0; i < 7; i++ {
		c.RecordBacktest(true, 100, now)
	}
	for i := 0; i < 13; i++ {
		c.RecordBacktest(false, 100, now)
	}
	if !c.IsActive {
		t.Error("Deactivation requires more than 20 trials")
	}
}

func TestSupersede_ForksVersionChain(t *testing.T) {
	now := time.Now().UTC()
	old := NewFromDiscovery(sampleDiscovery("shop-1"), now)
	old.IsActive = false

	next := old.Supersede(sampleDiscovery("shop-1"), now.Add(time.Hour))

	if next.Version != old.Version+1 {
		t.Errorf("Expected version %d, got %d", old.Version+1, next.Version)
	}
	if next.PreviousVersionID == nil || *next.PreviousVersionID != old.ID {
		t.Error("New version should point back at the superseded record")
	}
	if next.ID == old.ID {
		t.Error("New version should be a distinct record")
	}
	if !next.IsActive {
		t.Error("New version should start active")
	}
	if old.IsActive {
		t.Error("Superseded record should be inactive")
	}
	if !next.FirstSeen.Equal(old.FirstSeen) {
		t.Error("Version chain should preserve the original FirstSeen")
	}
}

func TestAbsorbContribution_WeightedAverage(t *testing.T) {
	now := time.Now().UTC()

	shared := NewFromDiscovery(sampleDiscovery("shop-1"), now)
	shared.Scope = ScopeRegional
	shared.EntityID = ""
	shared.Region = "austin-tx"
	shared.Coefficient = 0.2
	shared.SampleSize = 100
	shared.Contributions = map[string]Contribution{
		"shop-1": {Coefficient: 0.2, OutcomeChangePct: 20, SampleSize: 100, DataPoints: 100},
	}
	shared.EntitiesContributing = 1

	from := NewFromDiscovery(sampleDiscovery("shop-2"), now)
	from.Coefficient = 0.6
	from.SampleSize = 50

	shared.AbsorbContribution(from, now)

	// (0.2*100 + 0.6*50) / 150 = 1/3.
	want := (0.2*100 + 0.6*50) / 150
	if diff := shared.Coefficient - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected weighted coefficient %f, got %f", want, shared.Coefficient)
	}
	if shared.SampleSize != 150 {
		t.Errorf("Expected combined sample size 150, got %d", shared.SampleSize)
	}
	if shared.EntitiesContributing != 2 {
		t.Errorf("Expected 2 contributing entities, got %d", shared.EntitiesContributing)
	}
}

// Absorbing the same unchanged pattern again must leave the aggregate
// fixed; the entity's snapshot replaces its prior one rather than piling
// onto it.
func TestAbsorbContribution_RepeatIsIdempotent(t *testing.T) {
	now := time.Now().UTC()

	shared := NewFromDiscovery(sampleDiscovery("shop-1"), now)
	shared.Scope = ScopeGlobal
	shared.EntityID = ""

	from := NewFromDiscovery(sampleDiscovery("shop-2"), now)
	from.Coefficient = 0.5
	from.SampleSize = 40
	from.DataPoints = 40

	shared.AbsorbContribution(from, now)
	sampleAfterFirst := shared.SampleSize
	pointsAfterFirst := shared.DataPoints
	pAfterFirst := shared.PValue

	shared.AbsorbContribution(from, now)
	shared.AbsorbContribution(from, now)

	if shared.SampleSize != sampleAfterFirst {
		t.Errorf("Repeat absorption inflated sample size: %d, want %d", shared.SampleSize, sampleAfterFirst)
	}
	if shared.DataPoints != pointsAfterFirst {
		t.Errorf("Repeat absorption inflated data points: %d, want %d", shared.DataPoints, pointsAfterFirst)
	}
	if shared.PValue != pAfterFirst {
		t.Errorf("Repeat absorption moved the p-value: %v, want %v", shared.PValue, pAfterFirst)
	}
	if shared.EntitiesContributing != 1 {
		t.Errorf("Expected 1 contributing entity, got %d", shared.EntitiesContributing)
	}

	// A genuinely refreshed pattern replaces the entity's prior share.
	from.SampleSize = 60
	from.DataPoints = 60
	shared.AbsorbContribution(from, now)
	if shared.SampleSize != 60 {
		t.Errorf("Refreshed contribution should replace the prior sample, got %d", shared.SampleSize)
	}
}

func TestValidate_ScopeShapes(t *testing.T) {
	now := time.Now().UTC()

	entity := NewFromDiscovery(sampleDiscovery("shop-1"), now)
	if err := entity.Validate(); err != nil {
		t.Errorf("Entity-scoped record should validate: %v", err)
	}

	regional := NewFromDiscovery(sampleDiscovery("shop-1"), now)
	regional.Scope = ScopeRegional
	if err := regional.Validate(); err == nil {
		t.Error("Regional record with entity key and no region should fail validation")
	}
	regional.EntityID = ""
	regional.Region = "austin-tx"
	if err := regional.Validate(); err != nil {
		t.Errorf("Well-formed regional record should validate: %v", err)
	}

	global := NewFromDiscovery(sampleDiscovery("shop-1"), now)
	global.Scope = ScopeGlobal
	if err := global.Validate(); err == nil {
		t.Error("Global record with entity key should fail validation")
	}
	global.EntityID = ""
	global.Region = ""
	if err := global.Validate(); err != nil {
		t.Errorf("Well-formed global record should validate: %v", err)
	}
}
