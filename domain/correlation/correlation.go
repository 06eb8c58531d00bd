// Package correlation defines the central learned entity of the system: a
// quantified relationship between an external factor condition and a
// business outcome, carried at entity, regional, or global scope.
package correlation

import (
	"fmt"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
	"factorlens/domain/stats"
	apperrors "factorlens/internal/errors"
)

// Scope is the sharing tier of a learned pattern.
type Scope string

const (
	ScopeEntity   Scope = "entity"
	ScopeRegional Scope = "regional"
	ScopeGlobal   Scope = "global"
)

// Deactivation thresholds: a pattern whose rolling accuracy falls below
// DeactivateAccuracyPct after more than DeactivateMinTrials backtests is
// retired. Retirement is a feedback-loop outcome, not an error.
const (
	DeactivateAccuracyPct = 40.0
	DeactivateMinTrials   = 20
)

// MetricRevenue is the outcome metric every analyzer currently targets.
const MetricRevenue = "revenue"

// Correlation is a learned factor/outcome relationship. Statistics fields
// are recomputed on every discovery pass; learning metadata accumulates
// across validation cycles. Records are never hard-deleted: they are
// deactivated, or superseded through the version chain.
type Correlation struct {
	ID    core.CorrelationID `json:"id" db:"id"`
	Scope Scope              `json:"scope" db:"scope"`

	// Scope keys. EntityID is set iff scope=entity; Region (plus optional
	// Category) iff scope=regional; global rows carry neither.
	EntityID core.EntityID `json:"entity_id,omitempty" db:"entity_id"`
	Region   string        `json:"region,omitempty" db:"region"`
	Category string        `json:"category,omitempty" db:"category"`

	FactorType  factor.Type `json:"factor_type" db:"factor_type"`
	FactorShape string      `json:"factor_shape" db:"factor_shape"`

	// Observed outcome under the condition.
	Metric           string  `json:"metric" db:"metric"`
	OutcomeValue     float64 `json:"outcome_value" db:"outcome_value"`
	OutcomeChangePct float64 `json:"outcome_change_pct" db:"outcome_change_pct"`

	// Statistics.
	Coefficient float64 `json:"coefficient" db:"coefficient"`
	PValue      float64 `json:"p_value" db:"p_value"`
	SampleSize  int     `json:"sample_size" db:"sample_size"`
	RSquared    float64 `json:"r_squared" db:"r_squared"`
	Confidence  float64 `json:"confidence" db:"confidence"`

	Description    string `json:"description" db:"description"`
	Recommendation string `json:"recommendation" db:"recommendation"`

	// Learning metadata.
	FirstSeen            time.Time `json:"first_seen" db:"first_seen"`
	LastUpdated          time.Time `json:"last_updated" db:"last_updated"`
	DataPoints           int       `json:"data_points" db:"data_points"`
	EntitiesContributing int       `json:"entities_contributing" db:"entities_contributing"`
	ConfirmedCount       int       `json:"confirmed_count" db:"confirmed_count"`
	RefutedCount         int       `json:"refuted_count" db:"refuted_count"`
	AccuracyPct          float64   `json:"accuracy_pct" db:"accuracy_pct"`

	IsActive     bool `json:"is_active" db:"is_active"`
	TimesApplied int  `json:"times_applied" db:"times_applied"`

	// Version chain. Updates bump Version in place under an optimistic
	// lock; Supersede forks a new record pointing back at the old one.
	Version           int                 `json:"version" db:"version"`
	PreviousVersionID *core.CorrelationID `json:"previous_version_id,omitempty" db:"previous_version_id"`

	// Last-absorbed snapshot per contributing entity, regional/global
	// scope only. Keying by entity makes roll-ups idempotent: a repeat
	// contribution replaces the entity's prior share instead of
	// re-adding it.
	Contributions map[string]Contribution `json:"contributions,omitempty" db:"-"`
}

// Contribution is the slice of one entity's pattern that a shared record
// has absorbed. The shared record's statistics are recomputed from these
// snapshots on every merge.
type Contribution struct {
	Coefficient      float64 `json:"coefficient"`
	OutcomeChangePct float64 `json:"outcome_change_pct"`
	SampleSize       int     `json:"sample_size"`
	DataPoints       int     `json:"data_points"`
}

// Key identifies the factor shape a correlation covers; discovery upserts
// and resolution dedup both key on it.
type Key struct {
	FactorType  factor.Type
	FactorShape string
}

// Key returns the (type, shape) identity.
func (c *Correlation) Key() Key {
	return Key{FactorType: c.FactorType, FactorShape: c.FactorShape}
}

// Discovery is the accepted output of one analyzer, used to build or
// refresh an entity-scoped correlation.
type Discovery struct {
	EntityID         core.EntityID
	FactorType       factor.Type
	FactorShape      string
	Coefficient      float64
	PValue           float64
	SampleSize       int
	OutcomeValue     float64
	OutcomeChangePct float64
	Description      string
	Recommendation   string
}

// NewFromDiscovery creates an entity-scoped correlation from an accepted
// analyzer finding. Confidence is seeded from significance and sample
// size; validation cycles take over from there.
func NewFromDiscovery(d Discovery, now time.Time) *Correlation {
	c := &Correlation{
		ID:               core.CorrelationID(core.NewID()),
		Scope:            ScopeEntity,
		EntityID:         d.EntityID,
		FactorType:       d.FactorType,
		FactorShape:      d.FactorShape,
		Metric:           MetricRevenue,
		OutcomeValue:     d.OutcomeValue,
		OutcomeChangePct: d.OutcomeChangePct,
		Coefficient:      d.Coefficient,
		PValue:           d.PValue,
		SampleSize:       d.SampleSize,
		RSquared:         stats.RSquared(d.Coefficient),
		Confidence:       stats.SeedConfidence(d.PValue, d.SampleSize),
		Description:      d.Description,
		Recommendation:   d.Recommendation,
		FirstSeen:        now,
		LastUpdated:      now,
		DataPoints:       d.SampleSize,
		IsActive:         true,
		Version:          1,
	}
	return c
}

// Refresh recomputes the statistics of an existing active correlation from
// a fresh discovery over the same (type, shape) key. Confidence is only
// re-seeded while the pattern has no backtest history; once validation has
// run, accuracy owns the confidence score.
func (c *Correlation) Refresh(d Discovery, now time.Time) {
	c.Coefficient = d.Coefficient
	c.PValue = d.PValue
	c.SampleSize = d.SampleSize
	c.RSquared = stats.RSquared(d.Coefficient)
	c.OutcomeValue = d.OutcomeValue
	c.OutcomeChangePct = d.OutcomeChangePct
	c.Description = d.Description
	c.Recommendation = d.Recommendation
	c.DataPoints = d.SampleSize
	c.LastUpdated = now
	if c.Trials() == 0 {
		c.Confidence = stats.SeedConfidence(d.PValue, d.SampleSize)
	}
}

// Trials returns the total number of backtests the pattern has seen.
func (c *Correlation) Trials() int {
	return c.ConfirmedCount + c.RefutedCount
}

// RecordBacktest applies one validation outcome: counters, rolling
// accuracy, derived confidence, and the deactivation rule. It returns true
// if this call deactivated the pattern.
func (c *Correlation) RecordBacktest(confirmed bool, trialSaturation int, now time.Time) bool {
	if confirmed {
		c.ConfirmedCount++
	} else {
		c.RefutedCount++
	}
	trials := c.Trials()
	c.AccuracyPct = 100 * float64(c.ConfirmedCount) / float64(trials)
	c.Confidence = stats.Confidence(c.AccuracyPct, trials, trialSaturation)
	c.LastUpdated = now

	if c.IsActive && c.AccuracyPct < DeactivateAccuracyPct && trials > DeactivateMinTrials {
		c.IsActive = false
		return true
	}
	return false
}

// Supersede forks a new version from a fresh discovery and deactivates the
// receiver. The old record stays in the store as history.
func (c *Correlation) Supersede(d Discovery, now time.Time) *Correlation {
	next := NewFromDiscovery(d, now)
	next.Scope = c.Scope
	next.EntityID = c.EntityID
	next.Region = c.Region
	next.Category = c.Category
	next.FirstSeen = c.FirstSeen
	next.Version = c.Version + 1
	prev := c.ID
	next.PreviousVersionID = &prev
	c.IsActive = false
	c.LastUpdated = now
	return next
}

// AbsorbContribution merges an entity-scoped correlation into a shared
// (regional/global) one. The entity's snapshot replaces any prior one it
// contributed, and the shared statistics are recomputed as the
// sample-size-weighted average over all current snapshots. Absorbing the
// same unchanged pattern twice is a no-op on the aggregate.
func (c *Correlation) AbsorbContribution(from *Correlation, now time.Time) {
	if c.Contributions == nil {
		c.Contributions = make(map[string]Contribution)
	}
	c.Contributions[from.EntityID.String()] = Contribution{
		Coefficient:      from.Coefficient,
		OutcomeChangePct: from.OutcomeChangePct,
		SampleSize:       from.SampleSize,
		DataPoints:       from.DataPoints,
	}

	var totalN, totalPoints int
	var coeffSum, pctSum float64
	for _, contrib := range c.Contributions {
		totalN += contrib.SampleSize
		totalPoints += contrib.DataPoints
		coeffSum += contrib.Coefficient * float64(contrib.SampleSize)
		pctSum += contrib.OutcomeChangePct * float64(contrib.SampleSize)
	}
	if totalN > 0 {
		c.Coefficient = coeffSum / float64(totalN)
		c.OutcomeChangePct = pctSum / float64(totalN)
	}
	c.SampleSize = totalN
	c.DataPoints = totalPoints
	c.RSquared = stats.RSquared(c.Coefficient)
	c.PValue = stats.Significance(c.Coefficient, c.SampleSize)
	c.EntitiesContributing = len(c.Contributions)
	c.LastUpdated = now
	if c.Trials() == 0 {
		c.Confidence = stats.SeedConfidence(c.PValue, c.SampleSize)
	}
}

// Strength returns the display banding of the coefficient.
func (c *Correlation) Strength() string {
	return stats.Strength(c.Coefficient)
}

// Validate enforces the scope/key shape invariants.
func (c *Correlation) Validate() error {
	switch c.Scope {
	case ScopeEntity:
		if c.EntityID == "" {
			return apperrors.InvalidInput("entity-scoped correlation requires an entity key")
		}
	case ScopeRegional:
		if c.Region == "" {
			return apperrors.InvalidInput("regional correlation requires a region")
		}
		if c.EntityID != "" {
			return apperrors.InvalidInput("regional correlation must not carry an entity key")
		}
	case ScopeGlobal:
		if c.EntityID != "" || c.Region != "" {
			return apperrors.InvalidInput("global correlation must not carry entity or region keys")
		}
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown scope %q", c.Scope))
	}
	if c.FactorShape == "" {
		return apperrors.InvalidInput("correlation requires a factor shape")
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return apperrors.InvalidInput("confidence out of range")
	}
	return nil
}
