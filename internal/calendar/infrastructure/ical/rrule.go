package ical

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/teambition/rrule-go"
)

// rrule-go numbers weekdays from Monday.
func weekdayFromRRule(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}

// FormatRRule renders the RRULE value of a rule, without DTSTART.
func FormatRRule(rule domain.RecurrenceRule, dtstart time.Time) (string, error) {
	opt, err := domain.RuleOption(rule, dtstart)
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// ParseRRule translates an RRULE value into a rule. The end date is taken in
// loc. Parts that cannot be expressed without changing the expansion are
// rejected with ErrInvalidRule.
func ParseRRule(value string, loc *time.Location) (domain.RecurrenceRule, error) {
	if loc == nil {
		loc = time.UTC
	}
	opt, err := rrule.StrToROptionInLocation(value, loc)
	if err != nil {
		return domain.RecurrenceRule{}, fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}
	if len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0 {
		return domain.RecurrenceRule{}, fmt.Errorf("%w: unsupported RRULE part in %q", domain.ErrInvalidRule, value)
	}

	rule := domain.RecurrenceRule{
		Interval: opt.Interval,
		Count:    opt.Count,
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		rule.Frequency = domain.FrequencyDaily
		if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 {
			return domain.RecurrenceRule{}, fmt.Errorf("%w: daily rule with BY parts", domain.ErrInvalidRule)
		}
	case rrule.WEEKLY:
		rule.Frequency = domain.FrequencyWeekly
		if len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 {
			return domain.RecurrenceRule{}, fmt.Errorf("%w: weekly rule with month parts", domain.ErrInvalidRule)
		}
		for _, wd := range opt.Byweekday {
			if wd.N() != 0 {
				return domain.RecurrenceRule{}, fmt.Errorf("%w: ordinal weekday %s", domain.ErrInvalidRule, wd.String())
			}
			rule.DaysOfWeek = append(rule.DaysOfWeek, weekdayFromRRule(wd))
		}
	case rrule.MONTHLY:
		rule.Frequency = domain.FrequencyMonthly
		if len(opt.Byweekday) > 0 || len(opt.Bymonth) > 0 || len(opt.Bymonthday) > 1 {
			return domain.RecurrenceRule{}, fmt.Errorf("%w: monthly rule supports a single BYMONTHDAY", domain.ErrInvalidRule)
		}
		if len(opt.Bymonthday) == 1 {
			rule.DayOfMonth = opt.Bymonthday[0]
		}
	case rrule.YEARLY:
		rule.Frequency = domain.FrequencyYearly
		if len(opt.Byweekday) > 0 || len(opt.Bymonth) > 1 || len(opt.Bymonthday) > 1 {
			return domain.RecurrenceRule{}, fmt.Errorf("%w: yearly rule supports a single month and day", domain.ErrInvalidRule)
		}
		if len(opt.Bymonth) == 1 {
			rule.MonthOfYear = time.Month(opt.Bymonth[0])
		}
		if len(opt.Bymonthday) == 1 {
			rule.DayOfMonth = opt.Bymonthday[0]
		}
	default:
		return domain.RecurrenceRule{}, fmt.Errorf("%w: frequency %s", domain.ErrUnknownFrequency, opt.Freq.String())
	}

	if !opt.Until.IsZero() {
		d := domain.CivilDate(opt.Until.In(loc))
		rule.EndDate = &d
	}

	rule = rule.Normalized()
	if err := rule.Validate(); err != nil {
		return domain.RecurrenceRule{}, err
	}
	return rule, nil
}
