package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/calendar/infrastructure/ical"
)

// recurrenceFlags are the flags shared by add and edit.
type recurrenceFlags struct {
	rrule    string
	repeat   string
	interval int
	days     []string
	count    int
	until    string
}

func (f *recurrenceFlags) set() bool {
	return f.rrule != "" || f.repeat != ""
}

func (f *recurrenceFlags) reset() {
	*f = recurrenceFlags{}
}

// rule builds the recurrence rule described by the flags, or nil when no
// recurrence was requested. --rrule takes an RFC 5545 RRULE value.
func (f *recurrenceFlags) rule(loc *time.Location) (*domain.RecurrenceRule, error) {
	if f.rrule != "" {
		if f.repeat != "" {
			return nil, fmt.Errorf("use either --rrule or --repeat, not both")
		}
		rule, err := ical.ParseRRule(strings.TrimPrefix(f.rrule, "RRULE:"), loc)
		if err != nil {
			return nil, fmt.Errorf("invalid --rrule: %w", err)
		}
		return &rule, nil
	}
	if f.repeat == "" {
		return nil, nil
	}

	in := domain.RuleInput{
		Frequency: strings.ToLower(f.repeat),
		Interval:  f.interval,
		Count:     f.count,
		Until:     f.until,
	}
	for _, d := range f.days {
		in.ByDay = append(in.ByDay, strings.ToUpper(strings.TrimSpace(d)))
	}
	rule, err := in.ToRule()
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence: %w", err)
	}
	return &rule, nil
}

// describeRule renders a rule for humans, e.g. "every 2 weeks on MO,WE, 10 times".
func describeRule(in *domain.RuleInput) string {
	if in == nil {
		return "does not repeat"
	}
	unit := map[string]string{
		"daily":   "day",
		"weekly":  "week",
		"monthly": "month",
		"yearly":  "year",
	}[in.Frequency]
	if unit == "" {
		unit = in.Frequency
	}

	var b strings.Builder
	if in.Interval > 1 {
		fmt.Fprintf(&b, "every %d %ss", in.Interval, unit)
	} else {
		fmt.Fprintf(&b, "every %s", unit)
	}
	if len(in.DaysOfWeek) > 0 {
		codes := make([]string, len(in.DaysOfWeek))
		for i, d := range in.DaysOfWeek {
			codes[i] = domain.WeekdayCode(time.Weekday(d))
		}
		fmt.Fprintf(&b, " on %s", strings.Join(codes, ","))
	}
	switch {
	case in.Count > 0:
		fmt.Fprintf(&b, ", %d times", in.Count)
	case in.EndDate != "":
		fmt.Fprintf(&b, ", until %s", in.EndDate)
	}
	return b.String()
}
