package mcp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/calendar/infrastructure/ical"
)

// defaultWindowDays is the range listed when a tool gets no end date.
const defaultWindowDays = 7

func parseDate(value string, loc *time.Location, fallback time.Time) (time.Time, error) {
	return cli.ParseDate(value, loc, fallback)
}

// parseTimestamp reads "YYYY-MM-DD HH:MM" in loc or an RFC 3339 timestamp.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("timestamp is required")
	}
	if !strings.Contains(value, "-") {
		return time.Time{}, fmt.Errorf("timestamp %q needs a date, use YYYY-MM-DD HH:MM", value)
	}
	return cli.ParseDateTime(time.Time{}, value, loc)
}

func parseOptionalTimestamp(value *string, loc *time.Location) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseTimestamp(*value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := parseDate(value, loc, time.Time{})
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// parseWindow reads an inclusive date range. The end defaults to a week
// after the start.
func parseWindow(start, end string, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	return cli.ParseRange(start, end, defaultWindowDays, loc, now)
}

// parseRecurrence accepts a rule object in either JSON shape, or an RFC 5545
// RRULE string. Both at once is an error.
func parseRecurrence(rule *domain.RuleInput, rrule string, loc *time.Location) (*domain.RecurrenceRule, error) {
	switch {
	case rule != nil && rrule != "":
		return nil, errors.New("use either recurrence or rrule, not both")
	case rule != nil:
		parsed, err := rule.ToRule()
		if err != nil {
			return nil, fmt.Errorf("invalid recurrence: %w", err)
		}
		return &parsed, nil
	case rrule != "":
		parsed, err := ical.ParseRRule(strings.TrimPrefix(rrule, "RRULE:"), loc)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule: %w", err)
		}
		return &parsed, nil
	default:
		return nil, nil
	}
}
