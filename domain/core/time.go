package core

import "time"

// DateLayout is the canonical day key format used throughout the analysis
// pipeline. All per-day joins (outcomes, factors, baselines) key on it.
const DateLayout = "2006-01-02"

// DateKey formats a time as the canonical day key in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDateKey parses a canonical day key back into a UTC midnight time.
func ParseDateKey(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Now returns the current time in UTC, truncated to second precision so
// persisted timestamps round-trip cleanly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// DaysBetween returns each UTC midnight from start through end inclusive.
func DaysBetween(start, end time.Time) []time.Time {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
