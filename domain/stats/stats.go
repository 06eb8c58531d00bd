// Package stats holds the pure statistical primitives the discovery and
// validation pipeline is built on: Pearson correlation, a t-distribution
// significance approximation, and the confidence blending rules. No I/O.
package stats

import (
	"math"

	apperrors "factorlens/internal/errors"

	"gonum.org/v1/gonum/stat/distuv"
)

// MinSamplePairs is the minimum number of valid paired observations
// required before a correlation is computable at all.
const MinSamplePairs = 3

// DefaultTrialSaturation is the backtest trial count at which the trial
// term of the confidence blend saturates.
const DefaultTrialSaturation = 100

// Pearson computes the Pearson product-moment correlation over paired
// series and reports the number of valid pairs it was computed over.
// Pairs containing NaN or Inf are dropped; any significance derived from
// the coefficient must use the returned pair count, not the input length.
// Fewer than MinSamplePairs valid pairs is an INSUFFICIENT_DATA error. A
// series with zero variance yields r=0 (a degenerate, not erroneous,
// input).
func Pearson(xs, ys []float64) (float64, int, error) {
	if len(xs) != len(ys) {
		return 0, 0, apperrors.InvalidInput("paired series must have equal length")
	}

	var vx, vy []float64
	for i := range xs {
		if !validSample(xs[i]) || !validSample(ys[i]) {
			continue
		}
		vx = append(vx, xs[i])
		vy = append(vy, ys[i])
	}
	n := len(vx)
	if n < MinSamplePairs {
		return 0, n, apperrors.InsufficientData("fewer than 3 valid paired observations")
	}

	meanX := mean(vx)
	meanY := mean(vy)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := vx[i] - meanX
		dy := vy[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	// Zero variance in either series means no relationship is expressible.
	if varX == 0 || varY == 0 {
		return 0, n, nil
	}

	r := cov / math.Sqrt(varX*varY)
	return clamp(r, -1, 1), n, nil
}

// Significance returns the two-tailed p-value for a Pearson coefficient r
// observed over n samples, via the exact Student's t distribution with n-2
// degrees of freedom. It is non-increasing in |r| for fixed n, and
// non-increasing in n for fixed |r|.
func Significance(r float64, n int) float64 {
	if n < MinSamplePairs {
		return 1.0
	}
	abs := math.Abs(r)
	if abs >= 1 {
		return 0.0
	}
	df := float64(n - 2)
	t := abs * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(t)
	return clamp(p, 0, 1)
}

// Confidence blends rolling backtest accuracy with trial saturation into a
// 0-100 score: 70% weight on accuracy, 30% on how many trials back it.
// trialSaturation is the trial count at which the trial term maxes out;
// pass 0 to use DefaultTrialSaturation.
func Confidence(accuracyPct float64, trials, trialSaturation int) float64 {
	if trialSaturation <= 0 {
		trialSaturation = DefaultTrialSaturation
	}
	accuracyPct = clamp(accuracyPct, 0, 100)
	saturation := math.Min(float64(trials)/float64(trialSaturation), 1.0)
	return clamp(0.7*accuracyPct+30*saturation, 0, 100)
}

// SeedConfidence scores a freshly discovered pattern that has not been
// through any validation cycle, from its statistical significance and
// sample size alone: 70% weight on (1-p), 30% on sample saturation at 100
// observations. Returned on the same 0-100 scale as Confidence.
func SeedConfidence(pValue float64, sampleSize int) float64 {
	pValue = clamp(pValue, 0, 1)
	sizeTerm := math.Min(float64(sampleSize)/100.0, 1.0)
	return clamp(70*(1-pValue)+30*sizeTerm, 0, 100)
}

// Strength labels for display banding of |r|.
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"
	StrengthVeryWeak = "very_weak"
)

// Strength maps a correlation coefficient onto the display banding. It is
// presentation only and never gates acceptance.
func Strength(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs >= 0.7:
		return StrengthStrong
	case abs >= 0.4:
		return StrengthModerate
	case abs >= 0.2:
		return StrengthWeak
	default:
		return StrengthVeryWeak
	}
}

// RSquared is the coefficient of determination for a Pearson r.
func RSquared(r float64) float64 {
	return r * r
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func validSample(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
