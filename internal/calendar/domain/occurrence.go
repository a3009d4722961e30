package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultMaxOccurrences bounds a single expansion even for unbounded rules.
const DefaultMaxOccurrences = 1000

// Expander turns series into dated occurrences.
type Expander struct {
	maxOccurrences int
	logger         *slog.Logger
}

// NewExpander creates an expander. A non-positive limit selects
// DefaultMaxOccurrences.
func NewExpander(maxOccurrences int, logger *slog.Logger) *Expander {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{maxOccurrences: maxOccurrences, logger: logger}
}

// MaxOccurrences returns the per-expansion cap.
func (x *Expander) MaxOccurrences() int {
	return x.maxOccurrences
}

// GenerateOccurrences expands ev over [windowStart, windowEnd] with the
// default limits.
func GenerateOccurrences(ev Event, windowStart, windowEnd time.Time) []Event {
	return NewExpander(DefaultMaxOccurrences, nil).Expand(ev, windowStart, windowEnd)
}

// IsOccurrence reports whether the series ev produces an occurrence on the
// calendar date of date.
func IsOccurrence(ev Event, date time.Time) bool {
	return NewExpander(DefaultMaxOccurrences, nil).IsOccurrence(ev, date)
}

// Expand returns the occurrences of ev whose start lies in
// [windowStart, windowEnd], ordered by start. Non-recurring events are returned
// as-is when they start inside the window. Malformed rules and inverted
// windows yield no occurrences.
func (x *Expander) Expand(ev Event, windowStart, windowEnd time.Time) []Event {
	if windowEnd.Before(windowStart) {
		return nil
	}
	if !ev.IsSeries() {
		if !ev.StartsAt.Before(windowStart) && !ev.StartsAt.After(windowEnd) {
			return []Event{ev}
		}
		return nil
	}

	rule := *ev.RecurrenceRule
	if !rule.Frequency.IsValid() {
		x.logger.Warn("skipping series with unknown frequency",
			"event_id", ev.ID,
			"frequency", string(rule.Frequency),
		)
		return nil
	}
	if rule.Interval < 1 {
		x.logger.Warn("non-positive recurrence interval treated as 1",
			"event_id", ev.ID,
			"interval", rule.Interval,
		)
	}

	next, err := seriesIterator(ev)
	if err != nil {
		x.logger.Warn("skipping series with unexpandable rule",
			"event_id", ev.ID,
			"error", err,
		)
		return nil
	}

	var out []Event
	for start, ok := next(); ok; start, ok = next() {
		if start.After(windowEnd) {
			break
		}
		// Count is consumed by rule matches, so exceptions are omitted
		// rather than replaced.
		if start.Before(windowStart) || ev.HasException(DateKey(start)) {
			continue
		}
		out = append(out, occurrenceOf(ev, start))
		if len(out) >= x.maxOccurrences {
			x.logger.Debug("occurrence cap reached",
				"event_id", ev.ID,
				"cap", x.maxOccurrences,
			)
			break
		}
	}
	return out
}

// IsOccurrence reports whether ev produces an occurrence on the calendar date
// of date. Only the year, month and day of date are used; they are interpreted
// in the event's location.
func (x *Expander) IsOccurrence(ev Event, date time.Time) bool {
	day := dayIn(date, ev.Zone())
	key := DateKey(day)
	if ev.HasException(key) {
		return false
	}
	for _, occ := range x.Expand(ev, day, EndOfDay(day)) {
		if DateKey(occ.StartsAt) == key {
			return true
		}
	}
	return false
}

// CountBefore returns how many rule matches, exceptions included, fall on
// dates strictly before the calendar date of date.
func CountBefore(ev Event, date time.Time) int {
	if !ev.IsSeries() {
		return 0
	}
	next, err := seriesIterator(ev)
	if err != nil {
		return 0
	}
	limit := CivilDate(dayIn(date, ev.Zone()))
	matched := 0
	for start, ok := next(); ok; start, ok = next() {
		if !CivilDate(start).Before(limit) {
			break
		}
		matched++
	}
	return matched
}

// OccurrenceID derives the id of the occurrence of a series on a date.
func OccurrenceID(seriesID, dateKey string) string {
	return seriesID + "@" + dateKey
}

// ParseOccurrenceID splits an occurrence id into its series id and date key.
func ParseOccurrenceID(id string) (seriesID, dateKey string, err error) {
	i := strings.LastIndex(id, "@")
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidOccurrence, id)
	}
	seriesID, dateKey = id[:i], id[i+1:]
	if _, err := time.Parse(dateKeyLayout, dateKey); err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidOccurrence, id)
	}
	return seriesID, dateKey, nil
}

func occurrenceOf(ev Event, start time.Time) Event {
	occ := ev.Clone()
	key := DateKey(start)
	occ.ID = OccurrenceID(ev.ID, key)
	occ.StartsAt = start
	occ.EndsAt = start.Add(ev.Duration())
	occ.IsRecurring = false
	occ.RecurrenceRule = nil
	occ.RecurrenceExceptions = nil
	occ.RecurrenceParentID = ev.ID
	occ.OccurrenceDate = key
	return occ
}

// dayIn returns midnight in loc of the calendar date carried by t.
func dayIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// seriesIterator yields the rule matches of a series in its own location.
// A rule that can never match yields nothing.
func seriesIterator(ev Event) (rrule.Next, error) {
	rule := *ev.RecurrenceRule
	local := ev.StartsAt.In(ev.Zone())
	if rule.neverMatches(local) {
		return func() (time.Time, bool) { return time.Time{}, false }, nil
	}
	opt, err := RuleOption(rule, local)
	if err != nil {
		return nil, err
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	// rrule-go works at second precision.
	frac := time.Duration(local.Nanosecond())
	it := r.Iterator()
	return func() (time.Time, bool) {
		t, ok := it()
		if !ok {
			return time.Time{}, false
		}
		return t.Add(frac), true
	}, nil
}
