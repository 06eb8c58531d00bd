package factor

import (
	"testing"
	"time"
)

func weatherDay(tempF, precipIn float64) DayFactors {
	return DayFactors{{
		Type:    TypeWeather,
		Date:    time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		Weather: &Weather{TemperatureF: tempF, PrecipitationIn: precipIn},
	}}
}

func TestHotDayCondition(t *testing.T) {
	cond, ok := LookupCondition(ShapeHotDay)
	if !ok {
		t.Fatal("hot day condition not registered")
	}
	if !cond.Matches(weatherDay(92, 0)) {
		t.Error("92F should match temp_above_85")
	}
	if cond.Matches(weatherDay(85, 0)) {
		t.Error("85F exactly should not match a strict threshold")
	}
	if cond.Matches(nil) {
		t.Error("A day with no weather record should not match")
	}
}

func TestWeekdayConditions_FallBackToRecordDate(t *testing.T) {
	// 2025-07-04 is a Friday. No day-of-week record, only a dated weather
	// record; the weekday falls back to the record date.
	df := weatherDay(70, 0)

	friday, ok := LookupCondition(WeekdayShape(time.Friday))
	if !ok {
		t.Fatal("weekday condition not registered")
	}
	if !friday.Matches(df) {
		t.Error("Friday condition should match via the record date fallback")
	}

	weekend, _ := LookupCondition(ShapeWeekend)
	if weekend.Matches(df) {
		t.Error("Friday should not match the weekend condition")
	}
}

func TestCompoundCondition_ConjunctionOfComponents(t *testing.T) {
	shape := CompoundShape(ShapeHotDay, ShapeWeekend)
	cond, ok := LookupCondition(shape)
	if !ok {
		t.Fatalf("compound shape %q should resolve", shape)
	}

	saturday := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	hotSaturday := DayFactors{
		{Type: TypeWeather, Date: saturday, Weather: &Weather{TemperatureF: 95}},
		{Type: TypeDayOfWeek, Date: saturday, DayOfWeek: &DayOfWeek{Weekday: time.Saturday}},
	}
	if !cond.Matches(hotSaturday) {
		t.Error("Hot Saturday should match temp_above_85+weekend")
	}

	coolSaturday := DayFactors{
		{Type: TypeWeather, Date: saturday, Weather: &Weather{TemperatureF: 70}},
		{Type: TypeDayOfWeek, Date: saturday, DayOfWeek: &DayOfWeek{Weekday: time.Saturday}},
	}
	if cond.Matches(coolSaturday) {
		t.Error("Compound condition requires every component to hold")
	}
}

func TestLookupCondition_UnknownShape(t *testing.T) {
	if _, ok := LookupCondition("made_up_shape"); ok {
		t.Error("Unknown shape should not resolve")
	}
	if _, ok := LookupCondition(CompoundShape(ShapeHotDay, "made_up_shape")); ok {
		t.Error("Compound with an unknown component should not resolve")
	}
}

func TestLargeEventCondition(t *testing.T) {
	cond, _ := LookupCondition(ShapeLargeEvent)
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

	big := DayFactors{{
		Type:  TypeEvent,
		Date:  date,
		Event: &Event{Name: "festival", DistanceMi: 3, Attendance: 12000},
	}}
	if !cond.Matches(big) {
		t.Error("12k attendance at 3 miles should match large_event_nearby")
	}

	small := DayFactors{{
		Type:  TypeEvent,
		Date:  date,
		Event: &Event{Name: "market", DistanceMi: 1, Attendance: 300},
	}}
	if cond.Matches(small) {
		t.Error("300 attendance should not match large_event_nearby")
	}
}
