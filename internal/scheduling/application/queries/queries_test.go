package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/infrastructure/cache"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves a fixed calendar and counts lookups.
type stubSource struct {
	events []calendarDomain.Event
	err    error
	calls  int
}

func (s *stubSource) Occurrences(_ context.Context, _ uuid.UUID, start, end time.Time) ([]calendarDomain.Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []calendarDomain.Event
	for _, ev := range s.events {
		if !ev.StartsAt.Before(start) && !ev.StartsAt.After(end) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func event(id string, start, end time.Time) calendarDomain.Event {
	return calendarDomain.Event{ID: id, Title: id, StartsAt: start, EndsAt: end}
}

func profile() domain.UserPatterns {
	p := domain.DefaultPatterns()
	p.WorkStartHour = 8
	p.ProductiveHours = []int{8}
	return p
}

func TestGetPatternsHandler_Handle(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	now := at(20, 12, 0)

	t.Run("falls back to the profile without history", func(t *testing.T) {
		source := &stubSource{}
		handler := NewGetPatternsHandler(source, nil, profile(), nil)

		got, err := handler.Handle(ctx, GetPatternsQuery{UserID: userID, Now: now})

		require.NoError(t, err)
		assert.Equal(t, profile(), got)
	})

	t.Run("analyzes history and caches it", func(t *testing.T) {
		source := &stubSource{events: []calendarDomain.Event{
			event("a", at(11, 14, 0), at(11, 15, 0)),
			event("b", at(12, 14, 0), at(12, 15, 0)),
			event("old", at(1, 7, 0), at(1, 8, 0)),
		}}
		patternCache := cache.NewMemoryPatternCache()
		handler := NewGetPatternsHandler(source, patternCache, profile(), nil)

		got, err := handler.Handle(ctx, GetPatternsQuery{UserID: userID, Now: now, LookbackDays: 14})
		require.NoError(t, err)
		assert.Equal(t, 2, got.EventCount)
		assert.Equal(t, []int{14}, got.ProductiveHours)

		again, err := handler.Handle(ctx, GetPatternsQuery{UserID: userID, Now: now})
		require.NoError(t, err)
		assert.Equal(t, got, again)
		assert.Equal(t, 1, source.calls)

		_, err = handler.Handle(ctx, GetPatternsQuery{UserID: userID, Now: now, Refresh: true})
		require.NoError(t, err)
		assert.Equal(t, 2, source.calls)
	})

	t.Run("source errors are returned", func(t *testing.T) {
		handler := NewGetPatternsHandler(&stubSource{err: errors.New("db down")}, nil, profile(), nil)

		_, err := handler.Handle(ctx, GetPatternsQuery{UserID: userID, Now: now})

		assert.ErrorContains(t, err, "db down")
	})
}

func TestDetectConflictsHandler(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	standup := event("standup@2024-03-05", at(5, 9, 0), at(5, 9, 30))
	standup.RecurrenceParentID = "standup"
	source := &stubSource{events: []calendarDomain.Event{
		event("review", at(4, 10, 0), at(4, 11, 0)),
		event("sync", at(4, 10, 30), at(4, 11, 30)),
		event("lunch", at(4, 12, 0), at(4, 13, 0)),
		event("night-shift", at(4, 22, 0), at(5, 2, 0)),
		event("early-call", at(5, 1, 0), at(5, 1, 30)),
		standup,
	}}
	metrics := observability.NewInMemoryMetrics()
	handler := NewDetectConflictsHandler(source, metrics)

	t.Run("lists conflicts in the window", func(t *testing.T) {
		conflicts, err := handler.Handle(ctx, DetectConflictsQuery{UserID: userID, Start: at(4, 0, 0), End: at(4, 23, 59)})

		require.NoError(t, err)
		require.Len(t, conflicts, 2)
		assert.Equal(t, "review", conflicts[0].SubjectEventID)
		assert.Equal(t, []string{"sync"}, conflicts[0].ConflictingEventIDs)
		assert.Equal(t, "sync", conflicts[1].SubjectEventID)
		assert.Equal(t, []string{"review"}, conflicts[1].ConflictingEventIDs)
		assert.Equal(t, int64(2), metrics.GetCounter(observability.MetricConflictsDetected))
	})

	t.Run("includes events running into the window", func(t *testing.T) {
		conflicts, err := handler.Handle(ctx, DetectConflictsQuery{UserID: userID, Start: at(5, 0, 0), End: at(5, 23, 59)})

		require.NoError(t, err)
		require.Len(t, conflicts, 2)
		assert.Equal(t, "night-shift", conflicts[0].SubjectEventID)
		assert.Equal(t, []string{"early-call"}, conflicts[0].ConflictingEventIDs)
		assert.Equal(t, "early-call", conflicts[1].SubjectEventID)
	})

	t.Run("empty window", func(t *testing.T) {
		conflicts, err := handler.Handle(ctx, DetectConflictsQuery{UserID: userID, Start: at(20, 0, 0), End: at(21, 0, 0)})

		require.NoError(t, err)
		assert.NotNil(t, conflicts)
		assert.Empty(t, conflicts)
	})

	t.Run("checks a proposed time", func(t *testing.T) {
		conflict, err := handler.Check(ctx, CheckConflictQuery{UserID: userID, Start: at(4, 12, 30), End: at(4, 13, 30)})

		require.NoError(t, err)
		require.NotNil(t, conflict)
		assert.Equal(t, candidateID, conflict.SubjectEventID)
		assert.Equal(t, []string{"lunch"}, conflict.ConflictingEventIDs)
	})

	t.Run("moving an event ignores itself", func(t *testing.T) {
		conflict, err := handler.Check(ctx, CheckConflictQuery{
			UserID: userID, Start: at(4, 12, 15), End: at(4, 12, 45), ExcludeEventID: "lunch",
		})

		require.NoError(t, err)
		assert.Nil(t, conflict)
	})

	t.Run("moving a series ignores its occurrences", func(t *testing.T) {
		conflict, err := handler.Check(ctx, CheckConflictQuery{
			UserID: userID, Start: at(5, 9, 15), End: at(5, 9, 45), ExcludeEventID: "standup",
		})

		require.NoError(t, err)
		assert.Nil(t, conflict)

		conflict, err = handler.Check(ctx, CheckConflictQuery{UserID: userID, Start: at(5, 9, 15), End: at(5, 9, 45)})
		require.NoError(t, err)
		require.NotNil(t, conflict)
		assert.Equal(t, []string{"standup@2024-03-05"}, conflict.ConflictingEventIDs)
	})
}

func TestFindSlotsHandler_Handle(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	source := &stubSource{events: []calendarDomain.Event{
		event("standup", at(4, 8, 0), at(4, 9, 0)),
	}}
	metrics := observability.NewInMemoryMetrics()
	patterns := NewGetPatternsHandler(&stubSource{}, nil, profile(), nil)
	handler := NewFindSlotsHandler(source, patterns, 30, metrics, nil)

	slots, err := handler.Handle(ctx, FindSlotsQuery{UserID: userID, Date: at(4, 15, 0)})

	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.LessOrEqual(t, len(slots), domain.MaxSlots)
	for _, s := range slots {
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
		assert.False(t, s.Start.Equal(at(4, 8, 0)), "occupied hour offered")
	}
	assert.Len(t, metrics.GetTimings(observability.MetricSlotSearchDuration), 1)
}

func TestGetSuggestionsHandler_Handle(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	now := at(4, 7, 0)

	var busy []calendarDomain.Event
	for i, hour := range []int{9, 11, 13, 15, 17} {
		busy = append(busy, event(string(rune('a'+i)), at(5, hour, 0), at(5, hour, 30)))
	}
	source := &stubSource{events: busy}
	patterns := NewGetPatternsHandler(source, nil, profile(), nil)
	dismissals := cache.NewMemoryDismissalStore()
	handler := NewGetSuggestionsHandler(source, patterns, dismissals, nil)

	got, err := handler.Handle(ctx, GetSuggestionsQuery{UserID: userID, Now: now})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Contains(t, suggestionIDs(got), "busy-day-2024-03-05")

	require.NoError(t, dismissals.Dismiss(ctx, userID, "busy-day-2024-03-05"))

	got, err = handler.Handle(ctx, GetSuggestionsQuery{UserID: userID, Now: now})
	require.NoError(t, err)
	assert.NotContains(t, suggestionIDs(got), "busy-day-2024-03-05")

	got, err = handler.Handle(ctx, GetSuggestionsQuery{UserID: userID, Now: now, IncludeDismissed: true})
	require.NoError(t, err)
	assert.Contains(t, suggestionIDs(got), "busy-day-2024-03-05")
}

func suggestionIDs(suggestions []domain.Suggestion) []string {
	ids := make([]string, len(suggestions))
	for i, s := range suggestions {
		ids[i] = s.ID
	}
	return ids
}
