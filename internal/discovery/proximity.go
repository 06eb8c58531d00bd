package discovery

import (
	"context"
	"math"

	"factorlens/domain/factor"
	"factorlens/domain/outcome"
	apperrors "factorlens/internal/errors"
)

// EventAnalyzer tests proximity to local events. The large-event shape
// keeps the continuous attendance series as its coefficient.
type EventAnalyzer struct{}

func NewEventAnalyzer() *EventAnalyzer { return &EventAnalyzer{} }

func (a *EventAnalyzer) Name() string            { return "event" }
func (a *EventAnalyzer) FactorType() factor.Type { return factor.TypeEvent }

func (a *EventAnalyzer) Analyze(ctx context.Context, rows []outcome.Row) ([]Finding, error) {
	attendance := make([]float64, len(rows))
	observed := 0
	for i, row := range rows {
		attendance[i] = math.NaN()
		var total int
		for _, r := range row.Factors.OfType(factor.TypeEvent) {
			if r.Event.DistanceMi < factor.LargeEventMi {
				total += r.Event.Attendance
			}
		}
		if total > 0 {
			attendance[i] = float64(total)
			observed++
		} else {
			attendance[i] = 0
		}
	}
	if observed == 0 {
		return nil, apperrors.InsufficientData("no events observed in range")
	}

	var findings []Finding
	for _, spec := range []struct {
		shape      string
		continuous []float64
	}{
		{factor.ShapeNearbyEvent, nil},
		{factor.ShapeLargeEvent, attendance},
	} {
		cond, ok := factor.LookupCondition(spec.shape)
		if !ok {
			continue
		}
		f, err := bucketFinding(rows, cond, spec.continuous)
		if err != nil {
			continue
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// SportsAnalyzer tests nearby-game and rivalry-game conditions.
type SportsAnalyzer struct{}

func NewSportsAnalyzer() *SportsAnalyzer { return &SportsAnalyzer{} }

func (a *SportsAnalyzer) Name() string            { return "sports" }
func (a *SportsAnalyzer) FactorType() factor.Type { return factor.TypeSports }

func (a *SportsAnalyzer) Analyze(ctx context.Context, rows []outcome.Row) ([]Finding, error) {
	return findingsForShapes(rows, factor.ShapeHomeGame, factor.ShapeRivalryGame)
}
