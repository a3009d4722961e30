package cli

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the layout of --date style flags.
	DateLayout = "2006-01-02"
	// ClockLayout is the layout of --start and --end when a date is given separately.
	ClockLayout = "15:04"
	// DateTimeLayout is the layout of a full wall-clock timestamp flag.
	DateTimeLayout = "2006-01-02 15:04"
)

// ParseDate parses a YYYY-MM-DD flag as midnight in loc. An empty value
// yields the start of fallback's day.
func ParseDate(value string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if value == "" {
		f := fallback.In(loc)
		return time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc), nil
	}
	parsed, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	return parsed, nil
}

// ParseDateTime reads a wall-clock flag. value is either HH:MM, combined
// with date, or a full "YYYY-MM-DD HH:MM" or RFC 3339 timestamp.
func ParseDateTime(date time.Time, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("time is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(DateTimeLayout, value, loc); err == nil {
		return t, nil
	}
	clock, err := time.Parse(ClockLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format, use HH:MM or YYYY-MM-DD HH:MM: %w", err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// ParseRange reads a --from/--to pair of dates. The end is exclusive and
// defaults to days after the start.
func ParseRange(from, to string, days int, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	start, err := ParseDate(from, loc, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to == "" {
		return start, start.AddDate(0, 0, days), nil
	}
	end, err := ParseDate(to, loc, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end = end.AddDate(0, 0, 1)
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be before --from")
	}
	return start, end, nil
}

// FormatRange renders a time range in loc.
func FormatRange(start, end time.Time, loc *time.Location) string {
	start, end = start.In(loc), end.In(loc)
	if start.Format(DateLayout) == end.Format(DateLayout) {
		return fmt.Sprintf("%s %s-%s", start.Format("Mon Jan 2"), start.Format(ClockLayout), end.Format(ClockLayout))
	}
	return fmt.Sprintf("%s - %s", start.Format("Mon Jan 2 15:04"), end.Format("Mon Jan 2 15:04"))
}
