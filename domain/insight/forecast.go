package insight

import (
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
)

// Adjustment kinds. Percentage adjustments compound multiplicatively; flat
// amounts sum after the multiplicative pass, so overlapping percentage
// factors (a rainy holiday) are not double-counted.
const (
	AdjustPercent = "percent"
	AdjustFlat    = "flat"
)

// AppliedFactor records one resolved correlation's contribution to a
// forecast.
type AppliedFactor struct {
	CorrelationID core.CorrelationID `json:"correlation_id"`
	FactorType    factor.Type        `json:"factor_type"`
	FactorShape   string             `json:"factor_shape"`
	Kind          string             `json:"kind"`
	Weight        float64            `json:"weight"`       // pattern confidence / 100
	Adjustment    float64            `json:"adjustment"`   // confidence-weighted pct or flat amount
	Contribution  float64            `json:"contribution"` // resulting revenue delta
	Description   string             `json:"description"`
}

// ForecastResult is the bounded revenue forecast for one (entity, date).
// Results are ephemeral; callers serialize as needed.
type ForecastResult struct {
	EntityID        core.EntityID   `json:"entity_id"`
	TargetDate      time.Time       `json:"target_date"`
	Baseline        float64         `json:"baseline"`
	BaselineDays    int             `json:"baseline_days"`
	AppliedFactors  []AppliedFactor `json:"applied_factors"`
	Confidence      float64         `json:"confidence"`
	Low             float64         `json:"low"`
	Mid             float64         `json:"mid"`
	High            float64         `json:"high"`
	Recommendations []string        `json:"recommendations"`
	BaselineOnly    bool            `json:"baseline_only"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
