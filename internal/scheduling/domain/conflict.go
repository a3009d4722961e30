package domain

import (
	"fmt"
	"sort"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
)

// TimeRange represents a time period with start and end.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RangeOf returns the time range an event occupies.
func RangeOf(ev calendarDomain.Event) TimeRange {
	return TimeRange{Start: ev.StartsAt, End: ev.EndsAt}
}

// Overlaps checks if two half-open time ranges overlap. Touching endpoints
// do not overlap.
func (t TimeRange) Overlaps(other TimeRange) bool {
	return t.Start.Before(other.End) && t.End.After(other.Start)
}

// Contains reports whether other lies entirely within t.
func (t TimeRange) Contains(other TimeRange) bool {
	return !other.Start.Before(t.Start) && !other.End.After(t.End)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Intersection returns how long the two ranges overlap.
func (t TimeRange) Intersection(other TimeRange) time.Duration {
	start, end := t.Start, t.End
	if other.Start.After(start) {
		start = other.Start
	}
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// Severity ranks how badly two events overlap.
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Conflict groups the events overlapping one subject event.
type Conflict struct {
	SubjectEventID      string   `json:"subject_event_id"`
	ConflictingEventIDs []string `json:"conflicting_event_ids"`
	Severity            Severity `json:"severity"`
	Suggestions         []string `json:"suggestions"`
	// Alternatives are the concrete ranges behind the move suggestions, in
	// the same order.
	Alternatives []TimeRange `json:"alternatives,omitempty"`
}

const (
	shiftGap     = 15 * time.Minute
	earliestHour = 6
)

// Overlaps reports whether two events overlap in time.
func Overlaps(a, b calendarDomain.Event) bool {
	return RangeOf(a).Overlaps(RangeOf(b))
}

// ClassifySeverity rates the overlap of two events. Containment in either
// direction is high, an overlap beyond half the shorter event is medium and
// anything else is low. Events that do not overlap yield SeverityNone.
func ClassifySeverity(a, b calendarDomain.Event) Severity {
	ra, rb := RangeOf(a), RangeOf(b)
	if !ra.Overlaps(rb) {
		return SeverityNone
	}
	if ra.Contains(rb) || rb.Contains(ra) {
		return SeverityHigh
	}
	shorter := ra.Duration()
	if rb.Duration() < shorter {
		shorter = rb.Duration()
	}
	if 2*ra.Intersection(rb) > shorter {
		return SeverityMedium
	}
	return SeverityLow
}

// DetectConflicts scans a collection of events, testing each unordered pair
// once, and returns one Conflict per event that overlaps anything. Subjects
// are ordered by start time. All-day events are not time ranges and never
// conflict.
func DetectConflicts(events []calendarDomain.Event) []Conflict {
	timed := timedEvents(events)
	partners := make(map[int][]int)
	severity := make(map[int]Severity)

	for i := 0; i < len(timed); i++ {
		for j := i + 1; j < len(timed); j++ {
			s := ClassifySeverity(timed[i], timed[j])
			if s == SeverityNone {
				continue
			}
			partners[i] = append(partners[i], j)
			partners[j] = append(partners[j], i)
			if s.rank() > severity[i].rank() {
				severity[i] = s
			}
			if s.rank() > severity[j].rank() {
				severity[j] = s
			}
		}
	}

	subjects := make([]int, 0, len(partners))
	for i := range partners {
		subjects = append(subjects, i)
	}
	sort.Slice(subjects, func(a, b int) bool {
		return byStart(timed[subjects[a]], timed[subjects[b]])
	})

	conflicts := make([]Conflict, 0, len(subjects))
	for _, i := range subjects {
		others := make([]calendarDomain.Event, 0, len(partners[i]))
		for _, j := range partners[i] {
			others = append(others, timed[j])
		}
		conflicts = append(conflicts, newConflict(timed[i], others, severity[i]))
	}
	return conflicts
}

// DetectConflict checks a candidate event against a collection and returns
// nil when it overlaps nothing. Events sharing the candidate's id are skipped
// so an event being edited is not compared with its stored self.
func DetectConflict(events []calendarDomain.Event, candidate calendarDomain.Event) *Conflict {
	if candidate.IsAllDay {
		return nil
	}
	var others []calendarDomain.Event
	worst := SeverityNone
	for _, ev := range timedEvents(events) {
		if ev.ID != "" && ev.ID == candidate.ID {
			continue
		}
		s := ClassifySeverity(candidate, ev)
		if s == SeverityNone {
			continue
		}
		others = append(others, ev)
		if s.rank() > worst.rank() {
			worst = s
		}
	}
	if len(others) == 0 {
		return nil
	}
	c := newConflict(candidate, others, worst)
	return &c
}

func newConflict(subject calendarDomain.Event, others []calendarDomain.Event, severity Severity) Conflict {
	sort.Slice(others, func(a, b int) bool { return byStart(others[a], others[b]) })
	ids := make([]string, len(others))
	for i, ev := range others {
		ids[i] = ev.ID
	}
	suggestions, alternatives := resolutions(subject, others, severity)
	return Conflict{
		SubjectEventID:      subject.ID,
		ConflictingEventIDs: ids,
		Severity:            severity,
		Suggestions:         suggestions,
		Alternatives:        alternatives,
	}
}

// resolutions proposes moving the subject after the conflicting events,
// before them when that does not start before 06:00, or to the next day.
func resolutions(subject calendarDomain.Event, others []calendarDomain.Event, severity Severity) ([]string, []TimeRange) {
	loc := subject.Zone()
	duration := subject.Duration()

	latestEnd, earliestStart := others[0].EndsAt, others[0].StartsAt
	for _, ev := range others[1:] {
		if ev.EndsAt.After(latestEnd) {
			latestEnd = ev.EndsAt
		}
		if ev.StartsAt.Before(earliestStart) {
			earliestStart = ev.StartsAt
		}
	}
	label := "the conflicting events"
	if len(others) == 1 && others[0].Title != "" {
		label = fmt.Sprintf("%q", others[0].Title)
	}

	var suggestions []string
	var alternatives []TimeRange

	after := TimeRange{Start: latestEnd.Add(shiftGap).In(loc)}
	after.End = after.Start.Add(duration)
	suggestions = append(suggestions, fmt.Sprintf("Move to %s (15 minutes after %s ends)", clock(after), label))
	alternatives = append(alternatives, after)

	before := TimeRange{End: earliestStart.Add(-shiftGap).In(loc)}
	before.Start = before.End.Add(-duration)
	anchor := earliestStart.In(loc)
	floor := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), earliestHour, 0, 0, 0, loc)
	if !before.Start.Before(floor) {
		suggestions = append(suggestions, fmt.Sprintf("Move to %s (ending 15 minutes before %s starts)", clock(before), label))
		alternatives = append(alternatives, before)
	}

	next := TimeRange{Start: subject.StartsAt.In(loc).AddDate(0, 0, 1)}
	next.End = next.Start.Add(duration)
	suggestions = append(suggestions, fmt.Sprintf("Move to tomorrow at %s", next.Start.Format("15:04")))
	alternatives = append(alternatives, next)

	if severity == SeverityHigh || severity == SeverityMedium {
		suggestions = append(suggestions, "Consider shortening this event")
	}
	return suggestions, alternatives
}

func clock(r TimeRange) string {
	return r.Start.Format("15:04") + "–" + r.End.Format("15:04")
}

func timedEvents(events []calendarDomain.Event) []calendarDomain.Event {
	out := make([]calendarDomain.Event, 0, len(events))
	for _, ev := range events {
		if !ev.IsAllDay {
			out = append(out, ev)
		}
	}
	return out
}

func byStart(a, b calendarDomain.Event) bool {
	if !a.StartsAt.Equal(b.StartsAt) {
		return a.StartsAt.Before(b.StartsAt)
	}
	return a.ID < b.ID
}
