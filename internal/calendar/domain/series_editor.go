package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EditScope is the blast radius of an edit or delete on a series.
type EditScope string

const (
	ScopeSingle        EditScope = "single"
	ScopeAll           EditScope = "all"
	ScopeThisAndFuture EditScope = "thisAndFuture"
)

// ParseEditScope parses a scope name. Snake and kebab case spellings of
// thisAndFuture are accepted.
func ParseEditScope(s string) (EditScope, error) {
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(s))) {
	case "single", "this":
		return ScopeSingle, nil
	case "all", "series":
		return ScopeAll, nil
	case "thisandfuture", "future":
		return ScopeThisAndFuture, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// EventUpdate holds the fields an edit changes. Nil fields are left alone.
type EventUpdate struct {
	Title       *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	IsAllDay    *bool
	Color       *string
	Category    *string
	// RecurrenceRule replaces the rule of a series. It is ignored when the
	// edit produces a single detached occurrence.
	RecurrenceRule *RecurrenceRule
}

// ApplyTo writes the update into ev. Moving the start without an explicit end
// keeps the event's duration.
func (u EventUpdate) ApplyTo(ev *Event) {
	u.applyFields(ev)
	if u.RecurrenceRule != nil {
		ev.SetRecurrence(u.RecurrenceRule)
	}
}

func (u EventUpdate) applyFields(ev *Event) {
	if u.Title != nil {
		ev.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		ev.Description = *u.Description
	}
	if u.Location != nil {
		ev.Location = *u.Location
	}
	if u.StartsAt != nil {
		duration := ev.Duration()
		ev.StartsAt = *u.StartsAt
		ev.TimeZone = u.StartsAt.Location().String()
		if u.EndsAt == nil {
			ev.EndsAt = ev.StartsAt.Add(duration)
		}
	}
	if u.EndsAt != nil {
		ev.EndsAt = *u.EndsAt
	}
	if u.IsAllDay != nil {
		ev.IsAllDay = *u.IsAllDay
	}
	if u.Color != nil {
		ev.Color = *u.Color
	}
	if u.Category != nil {
		ev.Category = *u.Category
	}
}

// IsZero reports whether the update changes nothing.
func (u EventUpdate) IsZero() bool {
	return u == EventUpdate{}
}

var derivedIDNamespace = uuid.MustParse("8c6c3f43-5b0e-4f7a-9d55-2f1f0b8a6c21")

// DerivedID returns the stable id of an event derived from parentID. Retrying
// the same edit therefore targets the same record.
func DerivedID(parentID, kind, dateKey string) string {
	return uuid.NewSHA1(derivedIDNamespace, []byte(parentID+"|"+kind+"|"+dateKey)).String()
}

// EditSeries computes the mutations for editing ev under scope. For the
// single and thisAndFuture scopes, occurrenceDate selects the occurrence by
// its calendar date. Dates that are not occurrences of the series produce an
// empty set.
func EditSeries(ev Event, updates EventUpdate, scope EditScope, occurrenceDate time.Time) MutationSet {
	set := MutationSet{Scope: scope}
	if !ev.IsSeries() {
		updated := ev.Clone()
		updates.ApplyTo(&updated)
		set.Mutations = []Mutation{UpdateOf(updated)}
		set.Degraded = scope != ScopeAll
		return set
	}

	switch scope {
	case ScopeAll:
		updated := ev.Clone()
		updates.ApplyTo(&updated)
		set.Mutations = []Mutation{UpdateOf(updated)}
	case ScopeSingle:
		day, ok := seriesDay(ev, occurrenceDate)
		if !ok {
			return set
		}
		key := DateKey(day)
		parent := ev.Clone()
		parent.RecurrenceExceptions = withException(parent.RecurrenceExceptions, key)

		child := detachedCopy(ev, day, DerivedID(ev.ID, "single", key))
		child.SetRecurrence(nil)
		updates.applyFields(&child)

		set.Mutations = []Mutation{UpdateOf(parent), CreateOf(child)}
	case ScopeThisAndFuture:
		day, original, tailRule, ok := splitAt(ev, occurrenceDate)
		if !ok {
			return set
		}
		if updates.RecurrenceRule != nil {
			tailRule = updates.RecurrenceRule.Clone()
		}
		tail := detachedCopy(ev, day, DerivedID(ev.ID, "split", DateKey(day)))
		tail.SetRecurrence(&tailRule)
		tail.RecurrenceExceptions = nil
		updates.applyFields(&tail)

		set.Mutations = []Mutation{UpdateOf(original), CreateOf(tail)}
	}
	return set
}

// DeleteSeries computes the mutations for deleting ev under scope.
func DeleteSeries(ev Event, scope EditScope, occurrenceDate time.Time) MutationSet {
	set := MutationSet{Scope: scope}
	if !ev.IsSeries() {
		set.Mutations = []Mutation{DeleteOf(ev.ID)}
		set.Degraded = scope != ScopeAll
		return set
	}

	switch scope {
	case ScopeAll:
		set.Mutations = []Mutation{DeleteOf(ev.ID)}
	case ScopeSingle:
		day, ok := seriesDay(ev, occurrenceDate)
		if !ok {
			return set
		}
		parent := ev.Clone()
		parent.RecurrenceExceptions = withException(parent.RecurrenceExceptions, DateKey(day))
		set.Mutations = []Mutation{UpdateOf(parent)}
	case ScopeThisAndFuture:
		_, original, _, ok := splitAt(ev, occurrenceDate)
		if !ok {
			return set
		}
		set.Mutations = []Mutation{UpdateOf(original)}
	}
	return set
}

// EditDetached edits the child an earlier single edit detached from a
// series. The rule in updates is ignored, as for any single edit.
func EditDetached(child Event, updates EventUpdate) MutationSet {
	updated := child.Clone()
	updates.applyFields(&updated)
	return MutationSet{Scope: ScopeSingle, Mutations: []Mutation{UpdateOf(updated)}}
}

// ResumeSplit repeats a thisAndFuture edit whose original and tail are both
// stored already. The original is kept as stored and updates are applied to
// the tail.
func ResumeSplit(original, tail Event, updates EventUpdate) MutationSet {
	updated := tail.Clone()
	updates.ApplyTo(&updated)
	return MutationSet{
		Scope:     ScopeThisAndFuture,
		Mutations: []Mutation{UpdateOf(original.Clone()), UpdateOf(updated)},
	}
}

// DetachedID returns the id of the child a single edit of the occurrence on
// occurrenceDate creates, and whether the series already lists that date as
// an exception.
func DetachedID(ev Event, occurrenceDate time.Time) (string, bool) {
	if !ev.IsSeries() {
		return "", false
	}
	key := DateKey(dayIn(occurrenceDate, ev.Zone()))
	return DerivedID(ev.ID, "single", key), ev.HasException(key)
}

// SplitTailID returns the id of the tail series a thisAndFuture edit at
// occurrenceDate creates, and whether ev already ends the day before, as it
// does once that split is stored.
func SplitTailID(ev Event, occurrenceDate time.Time) (string, bool) {
	if !ev.IsSeries() {
		return "", false
	}
	day := dayIn(occurrenceDate, ev.Zone())
	return DerivedID(ev.ID, "split", DateKey(day)), splitRecorded(ev, day)
}

// splitAt returns the occurrence day, the original truncated before it and
// the rule the tail continues with. A series already truncated at that day
// is returned unchanged; its former end bound is not recoverable, so the
// tail rule is then unbounded.
func splitAt(ev Event, occurrenceDate time.Time) (time.Time, Event, RecurrenceRule, bool) {
	rule := *ev.RecurrenceRule
	if day, ok := seriesDay(ev, occurrenceDate); ok {
		original := ev.Clone()
		truncated := rule.WithEndDate(day.AddDate(0, 0, -1))
		original.RecurrenceRule = &truncated

		tailRule := rule.Clone()
		if rule.Count > 0 {
			tailRule.Count = rule.Count - CountBefore(ev, day)
		}
		return day, original, tailRule, true
	}

	day := dayIn(occurrenceDate, ev.Zone())
	if !splitRecorded(ev, day) {
		return time.Time{}, Event{}, RecurrenceRule{}, false
	}
	tailRule := rule.Clone()
	tailRule.EndDate = nil
	return day, ev.Clone(), tailRule, true
}

// splitRecorded reports whether the rule ends the day before day and would
// otherwise produce an occurrence on day.
func splitRecorded(ev Event, day time.Time) bool {
	rule := ev.RecurrenceRule
	if rule == nil || rule.EndDate == nil {
		return false
	}
	if !CivilDate(*rule.EndDate).Equal(CivilDate(day).AddDate(0, 0, -1)) {
		return false
	}
	unbounded := rule.Clone()
	unbounded.EndDate = nil
	probe := ev.Clone()
	probe.RecurrenceRule = &unbounded
	probe.RecurrenceExceptions = nil
	return IsOccurrence(probe, day)
}

// seriesDay resolves occurrenceDate to midnight in the series' location and
// reports whether the rule produces an occurrence that day. Exceptions are
// ignored so that a retried edit still finds its occurrence.
func seriesDay(ev Event, occurrenceDate time.Time) (time.Time, bool) {
	day := dayIn(occurrenceDate, ev.Zone())
	probe := ev.Clone()
	probe.RecurrenceExceptions = nil
	return day, IsOccurrence(probe, day)
}

// detachedCopy returns ev moved to day at its original wall-clock time.
func detachedCopy(ev Event, day time.Time, id string) Event {
	local := ev.StartsAt.In(ev.Zone())
	start := time.Date(day.Year(), day.Month(), day.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), ev.Zone())

	c := ev.Clone()
	c.ID = id
	c.StartsAt = start
	c.EndsAt = start.Add(ev.Duration())
	c.RecurrenceParentID = ev.ID
	c.OccurrenceDate = ""
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	return c
}

func withException(exceptions []string, key string) []string {
	out := append([]string(nil), exceptions...)
	if !slices.Contains(out, key) {
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}
