package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Frequency is the repetition unit of a recurrence rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// IsValid reports whether f is one of the known frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// ParseFrequency parses a frequency name case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
	}
	return f, nil
}

// RecurrenceRule describes how a series repeats.
type RecurrenceRule struct {
	Frequency Frequency `json:"frequency"`
	// Interval values below one are treated as one during expansion.
	Interval   int            `json:"interval"`
	DaysOfWeek []time.Weekday `json:"daysOfWeek,omitempty"`
	// DayOfMonth and MonthOfYear are zero when unset.
	DayOfMonth  int        `json:"dayOfMonth,omitempty"`
	MonthOfYear time.Month `json:"monthOfYear,omitempty"`
	// EndDate is an inclusive calendar date; only its year, month and day
	// are significant.
	EndDate *time.Time `json:"endDate,omitempty"`
	Count   int        `json:"count,omitempty"`
}

// Validate checks a rule entering the system.
func (r RecurrenceRule) Validate() error {
	if !r.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, r.Frequency)
	}
	for _, d := range r.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, d)
		}
	}
	if r.DayOfMonth < 0 || r.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, r.DayOfMonth)
	}
	if r.MonthOfYear < 0 || r.MonthOfYear > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidRule, r.MonthOfYear)
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: count must not be negative", ErrInvalidRule)
	}
	if r.EndDate != nil && r.Count > 0 {
		return ErrConflictingEnd
	}
	return nil
}

// EffectiveInterval returns the interval used for stepping.
func (r RecurrenceRule) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// HasDay reports whether d is one of the rule's weekdays.
func (r RecurrenceRule) HasDay(d time.Weekday) bool {
	return slices.Contains(r.DaysOfWeek, d)
}

// Clone returns a deep copy of the rule.
func (r RecurrenceRule) Clone() RecurrenceRule {
	c := r
	if r.DaysOfWeek != nil {
		c.DaysOfWeek = append([]time.Weekday(nil), r.DaysOfWeek...)
	}
	if r.EndDate != nil {
		d := *r.EndDate
		c.EndDate = &d
	}
	return c
}

// Normalized returns a copy with sorted, deduplicated weekdays.
func (r RecurrenceRule) Normalized() RecurrenceRule {
	c := r.Clone()
	if len(c.DaysOfWeek) > 0 {
		slices.Sort(c.DaysOfWeek)
		c.DaysOfWeek = slices.Compact(c.DaysOfWeek)
	}
	if c.Interval < 1 {
		c.Interval = 1
	}
	return c
}

// WithEndDate returns a copy bounded by an inclusive end date. Count is
// cleared because an explicit end date now governs the series.
func (r RecurrenceRule) WithEndDate(date time.Time) RecurrenceRule {
	c := r.Clone()
	d := CivilDate(date)
	c.EndDate = &d
	c.Count = 0
	return c
}

const dateKeyLayout = "2006-01-02"

// DateKey formats the calendar date of t in t's own location.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key as a date in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(dateKeyLayout, key, loc)
}

// CivilDate strips t down to its calendar date, at midnight UTC. Two civil
// dates compare by calendar order regardless of the zones they came from.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns midnight of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's date in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
