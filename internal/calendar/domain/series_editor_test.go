package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestEditSeries_Single(t *testing.T) {
	ev := series(mwf(), date(2024, 1, 1, 9, 0), 30*time.Minute)
	updates := EventUpdate{Title: ptr("Standup (moved room)")}

	set := EditSeries(ev, updates, ScopeSingle, date(2024, 1, 3, 0, 0))

	require.Len(t, set.Mutations, 2)
	assert.False(t, set.Degraded)

	parent := set.Mutations[0]
	assert.Equal(t, MutationUpdate, parent.Kind)
	assert.Equal(t, ev.ID, parent.EventID)
	assert.Equal(t, []string{"2024-01-03"}, parent.Event.RecurrenceExceptions)
	assert.Equal(t, "Standup", parent.Event.Title)

	child := set.Mutations[1]
	assert.Equal(t, MutationCreate, child.Kind)
	assert.Equal(t, DerivedID(ev.ID, "single", "2024-01-03"), child.Event.ID)
	assert.Equal(t, "Standup (moved room)", child.Event.Title)
	assert.Equal(t, date(2024, 1, 3, 9, 0), child.Event.StartsAt)
	assert.Equal(t, date(2024, 1, 3, 9, 30), child.Event.EndsAt)
	assert.False(t, child.Event.IsRecurring)
	assert.Nil(t, child.Event.RecurrenceRule)
	assert.Equal(t, ev.ID, child.Event.RecurrenceParentID)

	// The original event value is untouched.
	assert.Empty(t, ev.RecurrenceExceptions)

	t.Run("retry after partial apply converges", func(t *testing.T) {
		retry := EditSeries(parent.Event, updates, ScopeSingle, date(2024, 1, 3, 0, 0))

		require.Len(t, retry.Mutations, 2)
		assert.Equal(t, []string{"2024-01-03"}, retry.Mutations[0].Event.RecurrenceExceptions)
		assert.Equal(t, child.Event.ID, retry.Mutations[1].Event.ID)
	})

	t.Run("moving the occurrence keeps its duration", func(t *testing.T) {
		moved := EditSeries(ev, EventUpdate{StartsAt: ptr(date(2024, 1, 3, 15, 0))}, ScopeSingle, date(2024, 1, 3, 0, 0))

		require.Len(t, moved.Mutations, 2)
		assert.Equal(t, date(2024, 1, 3, 15, 30), moved.Mutations[1].Event.EndsAt)
	})

	t.Run("date that is not an occurrence", func(t *testing.T) {
		assert.True(t, EditSeries(ev, updates, ScopeSingle, date(2024, 1, 2, 0, 0)).IsEmpty())
	})
}

func TestEditSeries_All(t *testing.T) {
	ev := series(mwf(), date(2024, 1, 1, 9, 0), 30*time.Minute)
	newRule := RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Tuesday}}

	set := EditSeries(ev, EventUpdate{Title: ptr("Team sync"), RecurrenceRule: &newRule}, ScopeAll, time.Time{})

	require.Len(t, set.Mutations, 1)
	updated := set.Mutations[0].Event
	assert.Equal(t, MutationUpdate, set.Mutations[0].Kind)
	assert.Equal(t, ev.ID, updated.ID)
	assert.Equal(t, "Team sync", updated.Title)
	assert.Equal(t, []time.Weekday{time.Tuesday}, updated.RecurrenceRule.DaysOfWeek)
}

func TestEditSeries_ThisAndFuture(t *testing.T) {
	ev := series(mwf(), date(2024, 1, 1, 9, 0), 30*time.Minute)
	ev.RecurrenceExceptions = []string{"2024-01-03"}
	split := date(2024, 1, 8, 0, 0)

	set := EditSeries(ev, EventUpdate{Location: ptr("Room 4")}, ScopeThisAndFuture, split)

	require.Len(t, set.Mutations, 2)
	original := set.Mutations[0].Event
	tail := set.Mutations[1].Event

	assert.Equal(t, MutationUpdate, set.Mutations[0].Kind)
	require.NotNil(t, original.RecurrenceRule.EndDate)
	assert.Equal(t, "2024-01-07", DateKey(*original.RecurrenceRule.EndDate))
	assert.Zero(t, original.RecurrenceRule.Count)
	assert.Empty(t, GenerateOccurrences(original, split, date(2024, 12, 31, 0, 0)))
	assert.Equal(t, []string{"2024-01-01", "2024-01-05"}, dateKeys(GenerateOccurrences(original, date(2024, 1, 1, 0, 0), split)))

	assert.Equal(t, MutationCreate, set.Mutations[1].Kind)
	assert.Equal(t, DerivedID(ev.ID, "split", "2024-01-08"), tail.ID)
	assert.True(t, tail.IsRecurring)
	assert.Equal(t, ev.ID, tail.RecurrenceParentID)
	assert.Empty(t, tail.RecurrenceExceptions)
	assert.Equal(t, "Room 4", tail.Location)
	assert.Equal(t, date(2024, 1, 8, 9, 0), tail.StartsAt)
	assert.Equal(t, []string{"2024-01-08", "2024-01-10", "2024-01-12"},
		dateKeys(GenerateOccurrences(tail, split, EndOfDay(date(2024, 1, 14, 0, 0)))))
}

func TestEditSeries_ThisAndFutureKeepsTailBound(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		rule := RecurrenceRule{Frequency: FrequencyDaily, Interval: 1, Count: 10}
		ev := series(rule, date(2024, 1, 1, 9, 0), time.Hour)

		set := EditSeries(ev, EventUpdate{}, ScopeThisAndFuture, date(2024, 1, 4, 0, 0))

		require.Len(t, set.Mutations, 2)
		tail := set.Mutations[1].Event
		assert.Equal(t, 7, tail.RecurrenceRule.Count)

		window := [2]time.Time{date(2024, 1, 1, 0, 0), date(2024, 12, 31, 0, 0)}
		head := GenerateOccurrences(set.Mutations[0].Event, window[0], window[1])
		rest := GenerateOccurrences(tail, window[0], window[1])
		assert.Len(t, head, 3)
		assert.Len(t, rest, 7)
	})

	t.Run("end date", func(t *testing.T) {
		end := date(2024, 1, 20, 0, 0)
		rule := RecurrenceRule{Frequency: FrequencyDaily, Interval: 1, EndDate: &end}
		ev := series(rule, date(2024, 1, 1, 9, 0), time.Hour)

		set := EditSeries(ev, EventUpdate{}, ScopeThisAndFuture, date(2024, 1, 10, 0, 0))

		require.Len(t, set.Mutations, 2)
		assert.Equal(t, "2024-01-20", DateKey(*set.Mutations[1].Event.RecurrenceRule.EndDate))
	})
}

func TestEditSeries_ThisAndFutureRetry(t *testing.T) {
	rule := RecurrenceRule{Frequency: FrequencyDaily, Interval: 1, Count: 10}
	ev := series(rule, date(2024, 1, 1, 9, 0), time.Hour)
	day := date(2024, 1, 5, 0, 0)
	updates := EventUpdate{Title: ptr("Standup v2")}

	first := EditSeries(ev, updates, ScopeThisAndFuture, day)
	require.Len(t, first.Mutations, 2)
	stored := first.Mutations[0].Event

	t.Run("edit on the truncated original repeats the split", func(t *testing.T) {
		retry := EditSeries(stored, updates, ScopeThisAndFuture, day)

		require.Len(t, retry.Mutations, 2)
		assert.Equal(t, stored, retry.Mutations[0].Event)
		assert.Equal(t, first.Mutations[1].EventID, retry.Mutations[1].EventID)
		assert.Equal(t, "Standup v2", retry.Mutations[1].Event.Title)
		assert.Equal(t, date(2024, 1, 5, 9, 0), retry.Mutations[1].Event.StartsAt)
	})

	t.Run("delete on the truncated original keeps it", func(t *testing.T) {
		retry := DeleteSeries(stored, ScopeThisAndFuture, day)

		require.Len(t, retry.Mutations, 1)
		assert.Equal(t, stored, retry.Mutations[0].Event)
	})

	t.Run("other dates past the end are rejected", func(t *testing.T) {
		assert.True(t, EditSeries(stored, updates, ScopeThisAndFuture, date(2024, 1, 6, 0, 0)).IsEmpty())
		assert.True(t, DeleteSeries(stored, ScopeThisAndFuture, date(2024, 1, 7, 0, 0)).IsEmpty())
	})

	t.Run("split tail id", func(t *testing.T) {
		id, split := SplitTailID(stored, day)
		assert.True(t, split)
		assert.Equal(t, first.Mutations[1].EventID, id)

		_, split = SplitTailID(ev, day)
		assert.False(t, split)
	})
}

func TestResumeSplit(t *testing.T) {
	original := series(mwf(), date(2024, 1, 1, 9, 0), 30*time.Minute)
	tailRule := RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Monday}, Count: 4}
	tail := series(tailRule, date(2024, 1, 8, 9, 0), 30*time.Minute)
	tail.ID = DerivedID(original.ID, "split", "2024-01-08")
	tail.Title = "Standup v2"

	set := ResumeSplit(original, tail, EventUpdate{Location: ptr("Room 4")})

	require.Len(t, set.Mutations, 2)
	assert.Equal(t, ScopeThisAndFuture, set.Scope)
	assert.Equal(t, UpdateOf(original), set.Mutations[0])
	resumed := set.Mutations[1].Event
	assert.Equal(t, MutationUpdate, set.Mutations[1].Kind)
	assert.Equal(t, tail.ID, resumed.ID)
	assert.Equal(t, "Standup v2", resumed.Title)
	assert.Equal(t, "Room 4", resumed.Location)
	assert.Equal(t, 4, resumed.RecurrenceRule.Count)
}

func TestEditDetached(t *testing.T) {
	ev := series(mwf(), date(2024, 1, 1, 9, 0), 30*time.Minute)
	first := EditSeries(ev, EventUpdate{Title: ptr("Dentist")}, ScopeSingle, date(2024, 1, 3, 0, 0))
	require.Len(t, first.Mutations, 2)
	parent, child := first.Mutations[0].Event, first.Mutations[1].Event

	id, edited := DetachedID(parent, date(2024, 1, 3, 0, 0))
	assert.True(t, edited)
	assert.Equal(t, child.ID, id)
	_, edited = DetachedID(ev, date(2024, 1, 3, 0, 0))
	assert.False(t, edited)

	set := EditDetached(child, EventUpdate{Location: ptr("Room 4"), RecurrenceRule: &RecurrenceRule{Frequency: FrequencyDaily}})

	require.Len(t, set.Mutations, 1)
	updated := set.Mutations[0].Event
	assert.Equal(t, MutationUpdate, set.Mutations[0].Kind)
	assert.Equal(t, child.ID, updated.ID)
	assert.Equal(t, "Dentist", updated.Title)
	assert.Equal(t, "Room 4", updated.Location)
	assert.Nil(t, updated.RecurrenceRule)
}

func TestEditSeries_WithoutRule(t *testing.T) {
	ev := Event{ID: "single", Title: "Lunch", StartsAt: date(2024, 1, 2, 12, 0), EndsAt: date(2024, 1, 2, 13, 0)}

	for _, scope := range []EditScope{ScopeSingle, ScopeThisAndFuture, ScopeAll} {
		set := EditSeries(ev, EventUpdate{Title: ptr("Team lunch")}, scope, date(2024, 1, 2, 0, 0))

		require.Len(t, set.Mutations, 1, scope)
		assert.Equal(t, MutationUpdate, set.Mutations[0].Kind)
		assert.Equal(t, "Team lunch", set.Mutations[0].Event.Title)
		assert.Equal(t, scope != ScopeAll, set.Degraded)
	}
}

func TestDeleteSeries(t *testing.T) {
	ev := series(mwf(), date(2024, 1, 1, 9, 0), 30*time.Minute)

	t.Run("single adds an exception only", func(t *testing.T) {
		set := DeleteSeries(ev, ScopeSingle, date(2024, 1, 5, 0, 0))

		require.Len(t, set.Mutations, 1)
		assert.Equal(t, MutationUpdate, set.Mutations[0].Kind)
		assert.Equal(t, []string{"2024-01-05"}, set.Mutations[0].Event.RecurrenceExceptions)
	})

	t.Run("all removes the series", func(t *testing.T) {
		set := DeleteSeries(ev, ScopeAll, time.Time{})

		require.Len(t, set.Mutations, 1)
		assert.Equal(t, DeleteOf(ev.ID), set.Mutations[0])
	})

	t.Run("this and future truncates", func(t *testing.T) {
		set := DeleteSeries(ev, ScopeThisAndFuture, date(2024, 1, 10, 0, 0))

		require.Len(t, set.Mutations, 1)
		updated := set.Mutations[0].Event
		assert.Equal(t, "2024-01-09", DateKey(*updated.RecurrenceRule.EndDate))
		assert.Empty(t, set.Created())
	})

	t.Run("event without rule is deleted", func(t *testing.T) {
		plain := Event{ID: "plain", Title: "Call", StartsAt: date(2024, 1, 2, 12, 0), EndsAt: date(2024, 1, 2, 13, 0)}
		set := DeleteSeries(plain, ScopeSingle, date(2024, 1, 2, 0, 0))

		assert.Equal(t, []Mutation{DeleteOf("plain")}, set.Mutations)
		assert.True(t, set.Degraded)
	})
}

func TestParseEditScope(t *testing.T) {
	tests := map[string]EditScope{
		"single":          ScopeSingle,
		"ALL":             ScopeAll,
		"thisAndFuture":   ScopeThisAndFuture,
		"this_and_future": ScopeThisAndFuture,
		"this-and-future": ScopeThisAndFuture,
		"future":          ScopeThisAndFuture,
	}
	for input, want := range tests {
		got, err := ParseEditScope(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseEditScope("everything")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestDomainEventsFor(t *testing.T) {
	ev := series(mwf(), date(2024, 1, 1, 9, 0), 30*time.Minute)

	single := DomainEventsFor(EditSeries(ev, EventUpdate{}, ScopeSingle, date(2024, 1, 3, 0, 0)))
	require.Len(t, single, 3)
	assert.Equal(t, RoutingKeyEventUpdated, single[0].RoutingKey())
	assert.Equal(t, RoutingKeyEventCreated, single[1].RoutingKey())
	assert.Equal(t, RoutingKeyOccurrenceDetached, single[2].RoutingKey())
	assert.Equal(t, ev.ID, single[2].AggregateID())

	split := DomainEventsFor(EditSeries(ev, EventUpdate{}, ScopeThisAndFuture, date(2024, 1, 8, 0, 0)))
	require.Len(t, split, 3)
	assert.Equal(t, RoutingKeySeriesSplit, split[2].RoutingKey())

	deleted := DomainEventsFor(DeleteSeries(ev, ScopeAll, time.Time{}))
	require.Len(t, deleted, 1)
	assert.Equal(t, RoutingKeyEventDeleted, deleted[0].RoutingKey())
}
