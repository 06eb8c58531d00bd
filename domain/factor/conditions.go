package factor

import (
	"fmt"
	"strings"
	"time"
)

// Threshold constants shared by discovery, backtesting, and prediction so
// that a pattern discovered under one definition of "hot day" is always
// re-evaluated under the same definition.
const (
	HotDayTempF        = 85.0
	ColdDayTempF       = 40.0
	RainyDayPrecipIn   = 0.1
	NearbyEventMi      = 2.0
	LargeEventMi       = 5.0
	LargeEventMinSize  = 5000
	NearbyGameMi       = 5.0
	EveningStartHour   = 17
	CompoundShapeJoint = "+"
)

// Condition is a named, deterministic day-level predicate. The Shape key is
// the stable identity stored on a Correlation; Match re-evaluates the same
// predicate against a day's factors during backtests and forecasts.
type Condition struct {
	Type  Type
	Shape string
	Label string
	Match func(DayFactors) bool
}

// Matches is a nil-safe wrapper around Match.
func (c Condition) Matches(df DayFactors) bool {
	return c.Match != nil && c.Match(df)
}

// Condition shape keys.
const (
	ShapeHotDay       = "temp_above_85"
	ShapeColdDay      = "temp_below_40"
	ShapeRainyDay     = "rainy_day"
	ShapeHoliday      = "holiday"
	ShapeMajorHoliday = "major_holiday"
	ShapeNearbyEvent  = "event_within_2mi"
	ShapeLargeEvent   = "large_event_nearby"
	ShapeHomeGame     = "home_game_nearby"
	ShapeRivalryGame  = "rivalry_game_nearby"
	ShapeWeekend      = "weekend"
	ShapeEveningPeak  = "evening_peak"
)

// WeekdayShape returns the shape key for a single-weekday condition.
func WeekdayShape(d time.Weekday) string {
	return fmt.Sprintf("dow_%d", int(d))
}

var registry = buildRegistry()

func buildRegistry() map[string]Condition {
	conds := []Condition{
		{
			Type:  TypeWeather,
			Shape: ShapeHotDay,
			Label: fmt.Sprintf("temperature above %.0f°F", HotDayTempF),
			Match: func(df DayFactors) bool {
				w := df.Weather()
				return w != nil && w.TemperatureF > HotDayTempF
			},
		},
		{
			Type:  TypeWeather,
			Shape: ShapeColdDay,
			Label: fmt.Sprintf("temperature below %.0f°F", ColdDayTempF),
			Match: func(df DayFactors) bool {
				w := df.Weather()
				return w != nil && w.TemperatureF < ColdDayTempF
			},
		},
		{
			Type:  TypeWeather,
			Shape: ShapeRainyDay,
			Label: "measurable precipitation",
			Match: func(df DayFactors) bool {
				w := df.Weather()
				return w != nil && w.PrecipitationIn > RainyDayPrecipIn
			},
		},
		{
			Type:  TypeHoliday,
			Shape: ShapeHoliday,
			Label: "observed holiday",
			Match: func(df DayFactors) bool {
				return df.Holiday() != nil
			},
		},
		{
			Type:  TypeHoliday,
			Shape: ShapeMajorHoliday,
			Label: "major holiday",
			Match: func(df DayFactors) bool {
				h := df.Holiday()
				return h != nil && h.Impact == HolidayImpactMajor
			},
		},
		{
			Type:  TypeEvent,
			Shape: ShapeNearbyEvent,
			Label: fmt.Sprintf("event within %.0f miles", NearbyEventMi),
			Match: func(df DayFactors) bool {
				e := df.NearestEvent()
				return e != nil && e.DistanceMi < NearbyEventMi
			},
		},
		{
			Type:  TypeEvent,
			Shape: ShapeLargeEvent,
			Label: fmt.Sprintf("event of %d+ within %.0f miles", LargeEventMinSize, LargeEventMi),
			Match: func(df DayFactors) bool {
				for _, r := range df.OfType(TypeEvent) {
					if r.Event.DistanceMi < LargeEventMi && r.Event.Attendance >= LargeEventMinSize {
						return true
					}
				}
				return false
			},
		},
		{
			Type:  TypeSports,
			Shape: ShapeHomeGame,
			Label: fmt.Sprintf("game within %.0f miles", NearbyGameMi),
			Match: func(df DayFactors) bool {
				g := df.NearestGame()
				return g != nil && g.DistanceMi < NearbyGameMi
			},
		},
		{
			Type:  TypeSports,
			Shape: ShapeRivalryGame,
			Label: "rivalry game nearby",
			Match: func(df DayFactors) bool {
				for _, r := range df.OfType(TypeSports) {
					if r.Sports.Rivalry && r.Sports.DistanceMi < NearbyGameMi {
						return true
					}
				}
				return false
			},
		},
		{
			Type:  TypeDayOfWeek,
			Shape: ShapeWeekend,
			Label: "weekend day",
			Match: func(df DayFactors) bool {
				d, ok := weekdayOf(df)
				return ok && (d == time.Saturday || d == time.Sunday)
			},
		},
		{
			Type:  TypeTimeOfDay,
			Shape: ShapeEveningPeak,
			Label: fmt.Sprintf("evening trade from %d:00", EveningStartHour),
			Match: func(df DayFactors) bool {
				for _, r := range df.OfType(TypeTimeOfDay) {
					if r.TimeOfDay.Hour >= EveningStartHour {
						return true
					}
				}
				return false
			},
		},
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		day := d
		conds = append(conds, Condition{
			Type:  TypeDayOfWeek,
			Shape: WeekdayShape(day),
			Label: day.String(),
			Match: func(df DayFactors) bool {
				got, ok := weekdayOf(df)
				return ok && got == day
			},
		})
	}

	m := make(map[string]Condition, len(conds))
	for _, c := range conds {
		m[c.Shape] = c
	}
	return m
}

func weekdayOf(df DayFactors) (time.Weekday, bool) {
	for _, r := range df {
		if r.Type == TypeDayOfWeek && r.DayOfWeek != nil {
			return r.DayOfWeek.Weekday, true
		}
	}
	// Fall back to any record's date when the weekday record is absent.
	for _, r := range df {
		if !r.Date.IsZero() {
			return r.Date.UTC().Weekday(), true
		}
	}
	return time.Sunday, false
}

// LookupCondition resolves a shape key, including compound shapes joined
// with "+", whose predicate is the conjunction of the components.
func LookupCondition(shape string) (Condition, bool) {
	if c, ok := registry[shape]; ok {
		return c, true
	}
	parts := strings.Split(shape, CompoundShapeJoint)
	if len(parts) < 2 {
		return Condition{}, false
	}
	components := make([]Condition, 0, len(parts))
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		c, ok := registry[p]
		if !ok {
			return Condition{}, false
		}
		components = append(components, c)
		labels = append(labels, c.Label)
	}
	return Condition{
		Type:  components[0].Type,
		Shape: shape,
		Label: strings.Join(labels, " and "),
		Match: func(df DayFactors) bool {
			for _, c := range components {
				if !c.Matches(df) {
					return false
				}
			}
			return true
		},
	}, true
}

// CompoundShape builds the stable shape key of a compound condition. The
// component order is normalized by the caller (discovery sorts them).
func CompoundShape(shapes ...string) string {
	return strings.Join(shapes, CompoundShapeJoint)
}

// Conditions returns all registered single-factor conditions.
func Conditions() []Condition {
	out := make([]Condition, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	return out
}
