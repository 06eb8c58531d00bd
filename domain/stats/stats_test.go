package stats

import (
	"math"
	"testing"

	apperrors "factorlens/internal/errors"
)

func TestPearson_PerfectPositiveCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}

	r, _, err := Pearson(xs, ys)
	if err != nil {
		t.Fatalf("Pearson failed: %v", err)
	}
	if math.Abs(r-1.0) > 1e-9 {
		t.Errorf("Expected r=1 for perfectly linear data, got %f", r)
	}
}

func TestPearson_PerfectNegativeCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{10, 8, 6, 4, 2}

	r, _, err := Pearson(xs, ys)
	if err != nil {
		t.Fatalf("Pearson failed: %v", err)
	}
	if math.Abs(r+1.0) > 1e-9 {
		t.Errorf("Expected r=-1 for inverse data, got %f", r)
	}
}

func TestPearson_InsufficientData(t *testing.T) {
	_, _, err := Pearson([]float64{1, 2}, []float64{3, 4})
	if err == nil {
		t.Fatal("Expected error for fewer than 3 pairs")
	}
	if !apperrors.HasCode(err, apperrors.CodeInsufficientData) {
		t.Errorf("Expected INSUFFICIENT_DATA, got %s", apperrors.GetCode(err))
	}
}

// A constant series has zero variance; that is degenerate input, not an
// error, and must report no relationship.
func TestPearson_ZeroVarianceYieldsZero(t *testing.T) {
	xs := []float64{5, 5, 5, 5, 5}
	ys := []float64{1, 2, 3, 4, 5}

	r, _, err := Pearson(xs, ys)
	if err != nil {
		t.Fatalf("Zero variance should not error: %v", err)
	}
	if r != 0 {
		t.Errorf("Expected r=0 for zero-variance series, got %f", r)
	}
}

func TestPearson_DropsNonFinitePairs(t *testing.T) {
	xs := []float64{1, math.NaN(), 2, 3, math.Inf(1), 4, 5}
	ys := []float64{2, 100, 4, 6, -100, 8, 10}

	r, pairs, err := Pearson(xs, ys)
	if err != nil {
		t.Fatalf("Pearson failed: %v", err)
	}
	if math.Abs(r-1.0) > 1e-9 {
		t.Errorf("Expected r=1 after dropping non-finite pairs, got %f", r)
	}
	// Callers judge significance over the surviving pairs, so the count
	// must exclude the dropped ones.
	if pairs != 5 {
		t.Errorf("Expected 5 valid pairs after dropping 2, got %d", pairs)
	}
}

func TestSignificance_MonotonicInCoefficient(t *testing.T) {
	n := 40
	pWeak := Significance(0.1, n)
	pModerate := Significance(0.4, n)
	pStrong := Significance(0.8, n)

	if !(pStrong < pModerate && pModerate < pWeak) {
		t.Errorf("p-values should decrease with |r|: got %f, %f, %f", pWeak, pModerate, pStrong)
	}
}

func TestSignificance_MonotonicInSampleSize(t *testing.T) {
	r := 0.3
	pSmall := Significance(r, 10)
	pLarge := Significance(r, 100)

	if pLarge >= pSmall {
		t.Errorf("p-value should shrink with sample size: n=10 gives %f, n=100 gives %f", pSmall, pLarge)
	}
}

func TestSignificance_SymmetricInSign(t *testing.T) {
	pPos := Significance(0.5, 30)
	pNeg := Significance(-0.5, 30)
	if math.Abs(pPos-pNeg) > 1e-12 {
		t.Errorf("Two-tailed p should not depend on sign: %f vs %f", pPos, pNeg)
	}
}

func TestConfidence_Blend(t *testing.T) {
	// 80% accuracy at full saturation: 0.7*80 + 30 = 86.
	got := Confidence(80, 100, 100)
	if math.Abs(got-86) > 1e-9 {
		t.Errorf("Expected confidence 86, got %f", got)
	}

	// Same accuracy with only 10 of 100 trials: 0.7*80 + 3 = 59.
	got = Confidence(80, 10, 100)
	if math.Abs(got-59) > 1e-9 {
		t.Errorf("Expected confidence 59, got %f", got)
	}
}

func TestConfidence_TrialTermSaturates(t *testing.T) {
	atSaturation := Confidence(50, 100, 100)
	beyond := Confidence(50, 500, 100)
	if atSaturation != beyond {
		t.Errorf("Trial term should cap at saturation: %f vs %f", atSaturation, beyond)
	}
}

func TestSeedConfidence_RewardsSignificanceAndSamples(t *testing.T) {
	strong := SeedConfidence(0.001, 100)
	weak := SeedConfidence(0.04, 20)
	if strong <= weak {
		t.Errorf("Lower p with more samples should score higher: %f vs %f", strong, weak)
	}
	if strong < 0 || strong > 100 {
		t.Errorf("Confidence out of range: %f", strong)
	}
}

func TestStrength_Banding(t *testing.T) {
	cases := []struct {
		r    float64
		want string
	}{
		{0.9, StrengthStrong},
		{-0.75, StrengthStrong},
		{0.5, StrengthModerate},
		{-0.3, StrengthWeak},
		{0.1, StrengthVeryWeak},
		{0, StrengthVeryWeak},
	}
	for _, tc := range cases {
		if got := Strength(tc.r); got != tc.want {
			t.Errorf("Strength(%f) = %s, want %s", tc.r, got, tc.want)
		}
	}
}
