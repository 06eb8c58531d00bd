package discovery

import (
	"context"
	"math"

	"factorlens/domain/factor"
	"factorlens/domain/outcome"
	apperrors "factorlens/internal/errors"
)

// WeatherAnalyzer tests the threshold weather conditions, using the
// continuous temperature series as the correlation coefficient for the
// temperature shapes and the precipitation indicator for rain.
type WeatherAnalyzer struct{}

func NewWeatherAnalyzer() *WeatherAnalyzer { return &WeatherAnalyzer{} }

func (a *WeatherAnalyzer) Name() string            { return "weather" }
func (a *WeatherAnalyzer) FactorType() factor.Type { return factor.TypeWeather }

func (a *WeatherAnalyzer) Analyze(ctx context.Context, rows []outcome.Row) ([]Finding, error) {
	temps := make([]float64, len(rows))
	observed := 0
	for i, row := range rows {
		if w := row.Factors.Weather(); w != nil {
			temps[i] = w.TemperatureF
			observed++
		} else {
			temps[i] = math.NaN()
		}
	}
	if observed == 0 {
		return nil, apperrors.InsufficientData("no weather observations in range")
	}

	var findings []Finding
	for _, spec := range []struct {
		shape      string
		continuous []float64
	}{
		// The hot-day shape keeps the continuous temperature series as its
		// coefficient; inverted and binary shapes use the indicator form.
		{factor.ShapeHotDay, temps},
		{factor.ShapeColdDay, nil},
		{factor.ShapeRainyDay, nil},
	} {
		cond, ok := factor.LookupCondition(spec.shape)
		if !ok {
			continue
		}
		f, err := bucketFinding(rows, cond, spec.continuous)
		if err != nil {
			continue // non-fatal: condition never splits this period
		}
		findings = append(findings, f)
	}
	return findings, nil
}
