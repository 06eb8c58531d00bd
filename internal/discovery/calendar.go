package discovery

import (
	"context"
	"time"

	"factorlens/domain/factor"
	"factorlens/domain/outcome"
)

// HolidayAnalyzer tests the holiday and major-holiday conditions.
type HolidayAnalyzer struct{}

func NewHolidayAnalyzer() *HolidayAnalyzer { return &HolidayAnalyzer{} }

func (a *HolidayAnalyzer) Name() string            { return "holiday" }
func (a *HolidayAnalyzer) FactorType() factor.Type { return factor.TypeHoliday }

func (a *HolidayAnalyzer) Analyze(ctx context.Context, rows []outcome.Row) ([]Finding, error) {
	return findingsForShapes(rows, factor.ShapeHoliday, factor.ShapeMajorHoliday)
}

// TemporalAnalyzer tests the weekend split, each single weekday, and the
// evening daypart skew derived from the hourly revenue distribution.
type TemporalAnalyzer struct{}

func NewTemporalAnalyzer() *TemporalAnalyzer { return &TemporalAnalyzer{} }

func (a *TemporalAnalyzer) Name() string            { return "temporal" }
func (a *TemporalAnalyzer) FactorType() factor.Type { return factor.TypeDayOfWeek }

func (a *TemporalAnalyzer) Analyze(ctx context.Context, rows []outcome.Row) ([]Finding, error) {
	shapes := []string{factor.ShapeWeekend}
	for d := time.Sunday; d <= time.Saturday; d++ {
		shapes = append(shapes, factor.WeekdayShape(d))
	}
	findings, err := findingsForShapes(rows, shapes...)
	if err != nil {
		return nil, err
	}

	// Daypart: days whose evening share exceeds the entity's mean share.
	if f, ok := eveningSkewFinding(rows); ok {
		findings = append(findings, f)
	}
	return findings, nil
}

// eveningSkewFinding correlates evening-heavy days with total revenue.
// The split comes from outcome.EveningSkewSplit, the same predicate the
// validator replays the shape under.
func eveningSkewFinding(rows []outcome.Row) (Finding, bool) {
	active := outcome.ActiveRows(rows)
	if len(active) == 0 {
		return Finding{}, false
	}
	cond, ok := factor.LookupCondition(factor.ShapeEveningPeak)
	if !ok {
		return Finding{}, false
	}
	split := outcome.EveningSkewSplit(active, factor.EveningStartHour)
	f, err := splitFinding(rows, cond, split, nil)
	if err != nil {
		return Finding{}, false
	}
	return f, true
}

func findingsForShapes(rows []outcome.Row, shapes ...string) ([]Finding, error) {
	var findings []Finding
	for _, shape := range shapes {
		cond, ok := factor.LookupCondition(shape)
		if !ok {
			continue
		}
		f, err := bucketFinding(rows, cond, nil)
		if err != nil {
			continue
		}
		findings = append(findings, f)
	}
	return findings, nil
}
