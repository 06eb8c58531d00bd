// Package factor defines the external-context records the analysis
// pipeline consumes and the named day-level conditions shared by
// discovery, backtesting, and prediction. Records arrive pre-parsed from
// upstream providers; this package never touches a wire format.
package factor

import "time"

// Type tags the variants of the external factor union.
type Type string

const (
	TypeWeather   Type = "weather"
	TypeEvent     Type = "event"
	TypeHoliday   Type = "holiday"
	TypeSports    Type = "sports"
	TypeDayOfWeek Type = "day_of_week"
	TypeTimeOfDay Type = "time_of_day"
)

// AllTypes lists every factor variant in a stable order.
func AllTypes() []Type {
	return []Type{TypeWeather, TypeEvent, TypeHoliday, TypeSports, TypeDayOfWeek, TypeTimeOfDay}
}

// HolidayImpact classifies how disruptive a holiday is to normal trade.
type HolidayImpact string

const (
	HolidayImpactMajor HolidayImpact = "major"
	HolidayImpactMinor HolidayImpact = "minor"
)

// Weather carries the per-day weather observation for an entity's location.
type Weather struct {
	TemperatureF    float64 `json:"temperature_f"`
	PrecipitationIn float64 `json:"precipitation_in"`
	Condition       string  `json:"condition"`
}

// Event is a nearby local event on a given day.
type Event struct {
	Name       string  `json:"name"`
	DistanceMi float64 `json:"distance_mi"`
	Attendance int     `json:"attendance"`
	Category   string  `json:"category"`
}

// Holiday marks an observed holiday.
type Holiday struct {
	Name   string        `json:"name"`
	Impact HolidayImpact `json:"impact"`
}

// Sports is a professional game near the entity on a given day.
type Sports struct {
	Team       string  `json:"team"`
	DistanceMi float64 `json:"distance_mi"`
	Attendance int     `json:"attendance"`
	Rivalry    bool    `json:"rivalry"`
}

// DayOfWeek is the calendar weekday factor.
type DayOfWeek struct {
	Weekday time.Weekday `json:"weekday"`
}

// TimeOfDay is the hour-of-day factor used for daypart analysis.
type TimeOfDay struct {
	Hour int `json:"hour"`
}

// Record is the tagged union over all factor variants. Exactly one payload
// pointer is set for a given record; Date keys the per-day join.
type Record struct {
	Type Type      `json:"type"`
	Date time.Time `json:"date"`

	Weather   *Weather   `json:"weather,omitempty"`
	Event     *Event     `json:"event,omitempty"`
	Holiday   *Holiday   `json:"holiday,omitempty"`
	Sports    *Sports    `json:"sports,omitempty"`
	DayOfWeek *DayOfWeek `json:"day_of_week,omitempty"`
	TimeOfDay *TimeOfDay `json:"time_of_day,omitempty"`
}

// DayFactors is the set of factor records observed for one entity-day.
type DayFactors []Record

// OfType returns the records of a single variant.
func (df DayFactors) OfType(t Type) []Record {
	var out []Record
	for _, r := range df {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Weather returns the day's weather observation, if any.
func (df DayFactors) Weather() *Weather {
	for _, r := range df {
		if r.Type == TypeWeather && r.Weather != nil {
			return r.Weather
		}
	}
	return nil
}

// Holiday returns the day's holiday, if any.
func (df DayFactors) Holiday() *Holiday {
	for _, r := range df {
		if r.Type == TypeHoliday && r.Holiday != nil {
			return r.Holiday
		}
	}
	return nil
}

// NearestEvent returns the closest event of the day, if any.
func (df DayFactors) NearestEvent() *Event {
	var nearest *Event
	for _, r := range df {
		if r.Type != TypeEvent || r.Event == nil {
			continue
		}
		if nearest == nil || r.Event.DistanceMi < nearest.DistanceMi {
			nearest = r.Event
		}
	}
	return nearest
}

// NearestGame returns the closest sports game of the day, if any.
func (df DayFactors) NearestGame() *Sports {
	var nearest *Sports
	for _, r := range df {
		if r.Type != TypeSports || r.Sports == nil {
			continue
		}
		if nearest == nil || r.Sports.DistanceMi < nearest.DistanceMi {
			nearest = r.Sports
		}
	}
	return nearest
}
