package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RuleInput is the wire shape of a recurrence rule as it arrives from the
// CLI, MCP tools or imported JSON. Besides the canonical fields it accepts the
// legacy freq/byDay/until fields, whose weekdays are two-letter codes. ToRule
// translates either shape into the canonical RecurrenceRule.
type RuleInput struct {
	Frequency   string `json:"frequency,omitempty"`
	Interval    int    `json:"interval,omitempty"`
	DaysOfWeek  []int  `json:"daysOfWeek,omitempty"`
	DayOfMonth  int    `json:"dayOfMonth,omitempty"`
	MonthOfYear int    `json:"monthOfYear,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Count       int    `json:"count,omitempty"`

	Freq  string   `json:"freq,omitempty"`
	ByDay []string `json:"byDay,omitempty"`
	Until string   `json:"until,omitempty"`
}

// ParseRuleInput decodes a JSON rule in either shape.
func ParseRuleInput(data []byte) (RecurrenceRule, error) {
	var in RuleInput
	if err := json.Unmarshal(data, &in); err != nil {
		return RecurrenceRule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return in.ToRule()
}

// ToRule converts the input into a canonical rule. Canonical fields win when
// both shapes are present.
func (in RuleInput) ToRule() (RecurrenceRule, error) {
	freq := in.Frequency
	if freq == "" {
		freq = in.Freq
	}
	frequency, err := ParseFrequency(freq)
	if err != nil {
		return RecurrenceRule{}, err
	}

	rule := RecurrenceRule{
		Frequency:   frequency,
		Interval:    in.Interval,
		DayOfMonth:  in.DayOfMonth,
		MonthOfYear: time.Month(in.MonthOfYear),
		Count:       in.Count,
	}
	if rule.Interval == 0 {
		rule.Interval = 1
	}

	switch {
	case len(in.DaysOfWeek) > 0:
		for _, d := range in.DaysOfWeek {
			rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(d))
		}
	case len(in.ByDay) > 0:
		for _, code := range in.ByDay {
			d, err := WeekdayFromCode(code)
			if err != nil {
				return RecurrenceRule{}, err
			}
			rule.DaysOfWeek = append(rule.DaysOfWeek, d)
		}
	}

	end := in.EndDate
	if end == "" {
		end = in.Until
	}
	if end != "" {
		d, err := parseRuleDate(end)
		if err != nil {
			return RecurrenceRule{}, err
		}
		rule.EndDate = &d
	}

	rule = rule.Normalized()
	if err := rule.Validate(); err != nil {
		return RecurrenceRule{}, err
	}
	return rule, nil
}

// RuleInputFrom renders a rule in the canonical wire shape.
func RuleInputFrom(r RecurrenceRule) RuleInput {
	in := RuleInput{
		Frequency:   string(r.Frequency),
		Interval:    r.Interval,
		DayOfMonth:  r.DayOfMonth,
		MonthOfYear: int(r.MonthOfYear),
		Count:       r.Count,
	}
	for _, d := range r.DaysOfWeek {
		in.DaysOfWeek = append(in.DaysOfWeek, int(d))
	}
	if r.EndDate != nil {
		in.EndDate = DateKey(*r.EndDate)
	}
	return in
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// WeekdayFromCode parses a two-letter weekday code. Ordinal prefixes such as
// "1MO" or "-1FR" are accepted and the ordinal is dropped.
func WeekdayFromCode(code string) (time.Weekday, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekdayCode, code)
	}
	c = c[len(c)-2:]
	for i, wc := range weekdayCodes {
		if wc == c {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekdayCode, code)
}

// WeekdayCode returns the two-letter code of d.
func WeekdayCode(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdayCodes[d]
}

var ruleDateLayouts = []string{
	dateKeyLayout,
	time.RFC3339,
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
}

func parseRuleDate(s string) (time.Time, error) {
	for _, layout := range ruleDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CivilDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised end date %q", ErrInvalidRule, s)
}
