package learning

import (
	"context"
	"math"
	"testing"
	"time"

	"factorlens/adapters/memory"
	"factorlens/domain/core"
	"factorlens/domain/correlation"
	"factorlens/domain/factor"
	"factorlens/domain/stats"
	"factorlens/internal"
	"factorlens/internal/config"
)

func testLearningConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		RollupMinAccuracyPct:   70,
		RollupMinDataPoints:    20,
		ResolveMinConfidence:   60,
		VersionConflictRetries: 3,
	}
}

// entityPattern builds a stored entity-scoped pattern with explicit
// learning metadata, the state an entity reaches after validation cycles.
func entityPattern(entityID core.EntityID, shape string, coeff float64, sampleSize int, accuracyPct float64, dataPoints int) *correlation.Correlation {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &correlation.Correlation{
		ID:               core.CorrelationID(core.NewID()),
		Scope:            correlation.ScopeEntity,
		EntityID:         entityID,
		FactorType:       factor.TypeWeather,
		FactorShape:      shape,
		Metric:           correlation.MetricRevenue,
		OutcomeValue:     1200,
		OutcomeChangePct: 20,
		Coefficient:      coeff,
		PValue:           0.01,
		SampleSize:       sampleSize,
		Confidence:       85,
		AccuracyPct:      accuracyPct,
		DataPoints:       dataPoints,
		ConfirmedCount:   18,
		RefutedCount:     4,
		FirstSeen:        now,
		LastUpdated:      now,
		IsActive:         true,
		Version:          1,
	}
}

func TestContributeUpward_CreatesSharedTiers(t *testing.T) {
	repo := memory.NewCorrelationRepository()
	store := NewStore(repo, testLearningConfig(), internal.NewDefaultLogger())
	ctx := context.Background()
	entityID := core.EntityID("shop-1")

	proven := entityPattern(entityID, "temp_above_85", 0.4, 60, 82, 30)
	weak := entityPattern(entityID, "weekend", 0.3, 60, 55, 30)
	thin := entityPattern(entityID, "rain_day", 0.3, 60, 82, 10)
	for _, c := range []*correlation.Correlation{proven, weak, thin} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := store.ContributeUpward(ctx, entityID, "austin-tx", "coffee_shop"); err != nil {
		t.Fatalf("ContributeUpward: %v", err)
	}

	regional, err := repo.FindByKey(ctx, correlation.ScopeRegional, "", "austin-tx", "coffee_shop", proven.Key())
	if err != nil {
		t.Fatalf("FindByKey regional: %v", err)
	}
	if regional.EntitiesContributing != 1 {
		t.Errorf("regional entities contributing = %d, want 1", regional.EntitiesContributing)
	}
	if len(regional.Contributions) != 1 {
		t.Errorf("regional contributions = %v, want one entry for %s", regional.Contributions, entityID)
	}
	if _, ok := regional.Contributions[entityID.String()]; !ok {
		t.Errorf("regional contributions missing %s: %v", entityID, regional.Contributions)
	}
	if regional.Coefficient != proven.Coefficient || regional.SampleSize != proven.SampleSize {
		t.Errorf("regional stats = (%v, %d), want seed (%v, %d)",
			regional.Coefficient, regional.SampleSize, proven.Coefficient, proven.SampleSize)
	}
	if regional.EntityID != "" {
		t.Errorf("regional record carries entity key %q", regional.EntityID)
	}

	global, err := repo.FindByKey(ctx, correlation.ScopeGlobal, "", "", "", proven.Key())
	if err != nil {
		t.Fatalf("FindByKey global: %v", err)
	}
	if global.Region != "" || global.Category != "" {
		t.Errorf("global record carries scope keys (%q, %q)", global.Region, global.Category)
	}

	// Low accuracy and insufficient data points both stay entity-local.
	for _, shape := range []string{"weekend", "rain_day"} {
		key := correlation.Key{FactorType: factor.TypeWeather, FactorShape: shape}
		if _, err := repo.FindByKey(ctx, correlation.ScopeGlobal, "", "", "", key); err == nil {
			t.Errorf("shape %q rolled up despite failing the roll-up gate", shape)
		}
	}
}

func TestContributeUpward_WeightsBySampleSize(t *testing.T) {
	repo := memory.NewCorrelationRepository()
	store := NewStore(repo, testLearningConfig(), internal.NewDefaultLogger())
	ctx := context.Background()

	first := entityPattern("shop-1", "temp_above_85", 0.2, 100, 82, 30)
	second := entityPattern("shop-2", "temp_above_85", 0.6, 50, 82, 30)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	if err := store.ContributeUpward(ctx, "shop-1", "austin-tx", "coffee_shop"); err != nil {
		t.Fatalf("ContributeUpward shop-1: %v", err)
	}
	if err := store.ContributeUpward(ctx, "shop-2", "austin-tx", "coffee_shop"); err != nil {
		t.Fatalf("ContributeUpward shop-2: %v", err)
	}

	shared, err := repo.FindByKey(ctx, correlation.ScopeRegional, "", "austin-tx", "coffee_shop", first.Key())
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	want := (0.2*100 + 0.6*50) / 150
	if math.Abs(shared.Coefficient-want) > 1e-9 {
		t.Errorf("weighted coefficient = %v, want %v", shared.Coefficient, want)
	}
	if shared.SampleSize != 150 {
		t.Errorf("sample size = %d, want 150", shared.SampleSize)
	}
	if shared.EntitiesContributing != 2 {
		t.Errorf("entities contributing = %d, want 2", shared.EntitiesContributing)
	}

	// Re-rolling an unchanged pattern replaces the entity's prior share,
	// so the shared sample stays put across scheduled cycles.
	if err := store.ContributeUpward(ctx, "shop-2", "austin-tx", "coffee_shop"); err != nil {
		t.Fatalf("ContributeUpward repeat: %v", err)
	}
	shared, err = repo.FindByKey(ctx, correlation.ScopeRegional, "", "austin-tx", "coffee_shop", first.Key())
	if err != nil {
		t.Fatalf("FindByKey after repeat: %v", err)
	}
	if shared.EntitiesContributing != 2 {
		t.Errorf("entities contributing after repeat = %d, want 2", shared.EntitiesContributing)
	}
	if shared.SampleSize != 150 {
		t.Errorf("sample size after unchanged repeat = %d, want 150", shared.SampleSize)
	}
	if shared.PValue != stats.Significance(shared.Coefficient, 150) {
		t.Errorf("shared p-value %v not derived from n=150", shared.PValue)
	}

	// A genuinely refreshed entity pattern swaps in its new sample.
	refreshed, err := repo.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	refreshed.SampleSize = 80
	if err := repo.Update(ctx, refreshed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.ContributeUpward(ctx, "shop-2", "austin-tx", "coffee_shop"); err != nil {
		t.Fatalf("ContributeUpward refreshed: %v", err)
	}
	shared, err = repo.FindByKey(ctx, correlation.ScopeRegional, "", "austin-tx", "coffee_shop", first.Key())
	if err != nil {
		t.Fatalf("FindByKey after refresh: %v", err)
	}
	if shared.SampleSize != 180 {
		t.Errorf("sample size after refreshed contribution = %d, want 100+80=180", shared.SampleSize)
	}
}

func TestResolve_MostSpecificTierWinsPerKey(t *testing.T) {
	repo := memory.NewCorrelationRepository()
	store := NewStore(repo, testLearningConfig(), internal.NewDefaultLogger())
	ctx := context.Background()
	entityID := core.EntityID("shop-1")
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	own := entityPattern(entityID, "temp_above_85", 0.4, 60, 82, 30)
	own.Confidence = 70

	regional := &correlation.Correlation{
		ID: core.CorrelationID(core.NewID()), Scope: correlation.ScopeRegional,
		Region: "austin-tx", Category: "coffee_shop",
		FactorType: factor.TypeWeather, FactorShape: "temp_above_85",
		Metric: correlation.MetricRevenue, Coefficient: 0.5, SampleSize: 300,
		Confidence: 95, FirstSeen: now, LastUpdated: now, IsActive: true, Version: 1,
	}
	globalShared := &correlation.Correlation{
		ID: core.CorrelationID(core.NewID()), Scope: correlation.ScopeGlobal,
		FactorType: factor.TypeWeather, FactorShape: "temp_above_85",
		Metric: correlation.MetricRevenue, Coefficient: 0.45, SampleSize: 900,
		Confidence: 99, FirstSeen: now, LastUpdated: now, IsActive: true, Version: 1,
	}
	globalOnly := &correlation.Correlation{
		ID: core.CorrelationID(core.NewID()), Scope: correlation.ScopeGlobal,
		FactorType: factor.TypeEvent, FactorShape: "large_event",
		Metric: correlation.MetricRevenue, Coefficient: 0.3, SampleSize: 400,
		Confidence: 75, FirstSeen: now, LastUpdated: now, IsActive: true, Version: 1,
	}
	for _, c := range []*correlation.Correlation{own, regional, globalShared, globalOnly} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := store.Resolve(ctx, entityID, "austin-tx", "coffee_shop", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Resolve returned %d patterns, want 2: %+v", len(got), got)
	}

	byShape := make(map[string]*correlation.Correlation)
	for _, c := range got {
		byShape[c.FactorShape] = c
	}
	hot := byShape["temp_above_85"]
	if hot == nil {
		t.Fatal("hot-day key missing from resolution")
	}
	if hot.Scope != correlation.ScopeEntity || hot.ID != own.ID {
		t.Errorf("hot-day key resolved to %s scope %s, want the entity's own pattern", hot.ID, hot.Scope)
	}
	event := byShape["large_event"]
	if event == nil || event.Scope != correlation.ScopeGlobal {
		t.Errorf("key with only a global tier should resolve globally, got %+v", event)
	}

	// Sorted by confidence descending.
	if got[0].Confidence < got[1].Confidence {
		t.Errorf("resolution not sorted by confidence: %v then %v", got[0].Confidence, got[1].Confidence)
	}
}

func TestResolve_FiltersForeignAndLowConfidence(t *testing.T) {
	repo := memory.NewCorrelationRepository()
	store := NewStore(repo, testLearningConfig(), internal.NewDefaultLogger())
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	otherEntity := entityPattern("shop-2", "temp_above_85", 0.4, 60, 82, 30)
	lowConfidence := entityPattern("shop-1", "weekend", 0.3, 60, 82, 30)
	lowConfidence.Confidence = 40
	otherRegion := &correlation.Correlation{
		ID: core.CorrelationID(core.NewID()), Scope: correlation.ScopeRegional,
		Region: "portland-or", Category: "coffee_shop",
		FactorType: factor.TypeWeather, FactorShape: "rain_day",
		Metric: correlation.MetricRevenue, Coefficient: 0.5, SampleSize: 300,
		Confidence: 95, FirstSeen: now, LastUpdated: now, IsActive: true, Version: 1,
	}
	for _, c := range []*correlation.Correlation{otherEntity, lowConfidence, otherRegion} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := store.Resolve(ctx, "shop-1", "austin-tx", "coffee_shop", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Resolve leaked %d foreign or low-confidence patterns: %+v", len(got), got)
	}
}
