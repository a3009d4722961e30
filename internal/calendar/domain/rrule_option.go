package domain

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// RuleOption translates a rule anchored at dtstart into an rrule-go option.
// Weeks start on Monday, so a weekly interval counts weeks from the anchor's
// ISO week. Weekdays on a daily rule are dropped because expansion ignores
// them there. The end date is inclusive in dtstart's location.
func RuleOption(rule RecurrenceRule, dtstart time.Time) (rrule.ROption, error) {
	opt := rrule.ROption{
		Dtstart:  dtstart,
		Interval: rule.EffectiveInterval(),
		Count:    rule.Count,
		Wkst:     rrule.MO,
	}

	switch rule.Frequency {
	case FrequencyDaily:
		opt.Freq = rrule.DAILY
	case FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range rule.Normalized().DaysOfWeek {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{rule.dayOfMonth(dtstart)}
	case FrequencyYearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(rule.monthOfYear(dtstart))}
		opt.Bymonthday = []int{rule.dayOfMonth(dtstart)}
	default:
		return rrule.ROption{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, rule.Frequency)
	}

	if rule.EndDate != nil {
		y, m, d := rule.EndDate.Date()
		opt.Until = time.Date(y, m, d, 23, 59, 59, 0, dtstart.Location()).UTC()
	}
	return opt, nil
}

func (r RecurrenceRule) dayOfMonth(dtstart time.Time) int {
	if r.DayOfMonth > 0 {
		return r.DayOfMonth
	}
	return dtstart.Day()
}

func (r RecurrenceRule) monthOfYear(dtstart time.Time) time.Month {
	if r.MonthOfYear > 0 {
		return r.MonthOfYear
	}
	return dtstart.Month()
}

// neverMatches reports whether a yearly rule names a day its month never
// has, such as February 30.
func (r RecurrenceRule) neverMatches(dtstart time.Time) bool {
	if r.Frequency != FrequencyYearly {
		return false
	}
	month := r.monthOfYear(dtstart)
	// 2024 is a leap year, so February allows the 29th.
	last := time.Date(2024, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return r.dayOfMonth(dtstart) > last
}
