package commands

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestEditEventHandler_Handle(t *testing.T) {
	userID := uuid.New()

	t.Run("single scope detaches the occurrence named by its id", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		saved := f.captureSaves()
		msgs := f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:  userID,
			EventID: domain.OccurrenceID(series.ID, "2024-03-06"),
			Scope:   domain.ScopeSingle,
			Update:  domain.EventUpdate{Title: ptr("Standup (moved)")},
		})

		require.NoError(t, err)
		assert.False(t, result.Degraded)
		require.Len(t, *saved, 2)

		parent, child := (*saved)[0], (*saved)[1]
		assert.Equal(t, series.ID, parent.ID)
		assert.Equal(t, []string{"2024-03-06"}, parent.RecurrenceExceptions)
		assert.Equal(t, "Standup", parent.Title)

		assert.Equal(t, series.ID, child.RecurrenceParentID)
		assert.False(t, child.IsSeries())
		assert.Equal(t, "Standup (moved)", child.Title)
		assert.Equal(t, time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), child.StartsAt)
		assert.Equal(t, []string{parent.ID, child.ID}, result.EventIDs)

		assert.Equal(t, []string{
			domain.RoutingKeyEventUpdated,
			domain.RoutingKeyEventCreated,
			domain.RoutingKeyOccurrenceDetached,
		}, routingKeys(*msgs))
		f.assertExpectations(t)
	})

	t.Run("this and future splits the series", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		saved := f.captureSaves()
		msgs := f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)
		date := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

		_, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:         userID,
			EventID:        series.ID,
			Scope:          domain.ScopeThisAndFuture,
			OccurrenceDate: &date,
			Update:         domain.EventUpdate{Location: ptr("Room 4")},
		})

		require.NoError(t, err)
		require.Len(t, *saved, 2)
		original, tail := (*saved)[0], (*saved)[1]
		require.NotNil(t, original.RecurrenceRule.EndDate)
		assert.Equal(t, "2024-03-07", domain.DateKey(*original.RecurrenceRule.EndDate))
		assert.True(t, tail.IsSeries())
		assert.Equal(t, "Room 4", tail.Location)
		assert.Contains(t, routingKeys(*msgs), domain.RoutingKeySeriesSplit)
	})

	t.Run("retrying an edit targets the same derived event", func(t *testing.T) {
		f := newFixture()
		f.uow.On("Begin", f.ctx).Return(f.txCtx, nil).Twice()
		f.uow.On("Commit", f.txCtx).Return(nil).Twice()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)
		cmd := EditEventCommand{
			UserID:  userID,
			EventID: domain.OccurrenceID(series.ID, "2024-03-06"),
			Scope:   domain.ScopeSingle,
			Update:  domain.EventUpdate{Title: ptr("Moved")},
		}

		_, err := handler.Handle(f.ctx, cmd)
		require.NoError(t, err)
		_, err = handler.Handle(f.ctx, cmd)
		require.NoError(t, err)

		require.Len(t, *saved, 4)
		assert.Equal(t, (*saved)[1].ID, (*saved)[3].ID)
	})

	t.Run("series scope on a single event degrades to an update", func(t *testing.T) {
		f := newFixture()
		f.committing()
		ev := singleEvent(userID)
		f.repo.On("FindByID", f.txCtx, ev.ID).Return(ev, nil)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:  userID,
			EventID: ev.ID,
			Scope:   domain.ScopeSingle,
			Update:  domain.EventUpdate{Title: ptr("Dentist checkup")},
		})

		require.NoError(t, err)
		assert.True(t, result.Degraded)
		require.Len(t, *saved, 1)
		assert.Equal(t, "Dentist checkup", (*saved)[0].Title)
	})

	t.Run("date without an occurrence is rejected", func(t *testing.T) {
		f := newFixture()
		f.rollingBack()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		_, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:  userID,
			EventID: domain.OccurrenceID(series.ID, "2024-03-01"),
			Scope:   domain.ScopeSingle,
			Update:  domain.EventUpdate{Title: ptr("x")},
		})

		assert.ErrorIs(t, err, domain.ErrInvalidOccurrence)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("series scope without a date is rejected", func(t *testing.T) {
		f := newFixture()
		f.rollingBack()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		_, err := handler.Handle(f.ctx, EditEventCommand{
			UserID: userID, EventID: series.ID, Scope: domain.ScopeThisAndFuture,
		})

		assert.ErrorIs(t, err, domain.ErrInvalidOccurrence)
	})

	t.Run("events of other users are not found", func(t *testing.T) {
		f := newFixture()
		f.rollingBack()
		series := dailyStandup(uuid.New())
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		_, err := handler.Handle(f.ctx, EditEventCommand{UserID: userID, EventID: series.ID})

		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("invalid replacement rule is rejected before loading", func(t *testing.T) {
		f := newFixture()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		_, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:  userID,
			EventID: "series-1",
			Update:  domain.EventUpdate{RecurrenceRule: &domain.RecurrenceRule{Frequency: "hourly"}},
		})

		assert.ErrorIs(t, err, domain.ErrUnknownFrequency)
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})
}

func TestEditEventHandler_RepeatedEdits(t *testing.T) {
	userID := uuid.New()
	occurrenceID := domain.OccurrenceID("series-1", "2024-03-06")

	t.Run("second single edit updates the detached child", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series, child := detachedStandup(userID, "2024-03-06", "Dentist")
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		f.repo.On("FindByID", f.txCtx, child.ID).Return(child, nil)
		saved := f.captureSaves()
		msgs := f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:  userID,
			EventID: occurrenceID,
			Scope:   domain.ScopeSingle,
			Update:  domain.EventUpdate{Location: ptr("Room 4")},
		})

		require.NoError(t, err)
		require.Len(t, *saved, 1)
		assert.Equal(t, child.ID, (*saved)[0].ID)
		assert.Equal(t, "Dentist", (*saved)[0].Title)
		assert.Equal(t, "Room 4", (*saved)[0].Location)
		assert.Equal(t, []string{child.ID}, result.EventIDs)
		assert.Equal(t, []string{domain.RoutingKeyEventUpdated}, routingKeys(*msgs))
		f.assertExpectations(t)
	})

	t.Run("exception without a stored child recreates it", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series, child := detachedStandup(userID, "2024-03-06", "Dentist")
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		f.repo.On("FindByID", f.txCtx, child.ID).Return(nil, domain.ErrEventNotFound)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		_, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:  userID,
			EventID: occurrenceID,
			Scope:   domain.ScopeSingle,
			Update:  domain.EventUpdate{Location: ptr("Room 4")},
		})

		require.NoError(t, err)
		require.Len(t, *saved, 2)
		assert.Equal(t, []string{"2024-03-06"}, (*saved)[0].RecurrenceExceptions)
		assert.Equal(t, child.ID, (*saved)[1].ID)
		assert.Equal(t, "Standup", (*saved)[1].Title)
	})

	t.Run("retried split updates the stored tail", func(t *testing.T) {
		f := newFixture()
		f.committing()
		day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
		series := truncatedStandup(userID, day)
		tailID := domain.DerivedID(series.ID, "split", "2024-03-08")
		tail := dailyStandup(userID)
		tail.ID = tailID
		tail.StartsAt = day.Add(9 * time.Hour)
		tail.EndsAt = tail.StartsAt.Add(15 * time.Minute)
		tail.Title = "Standup v2"
		tail.RecurrenceParentID = series.ID
		tail.RecurrenceRule.Count = 5

		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		f.repo.On("FindByID", f.txCtx, tailID).Return(tail, nil)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:         userID,
			EventID:        series.ID,
			Scope:          domain.ScopeThisAndFuture,
			OccurrenceDate: &day,
			Update:         domain.EventUpdate{Title: ptr("Standup v2")},
		})

		require.NoError(t, err)
		require.Len(t, *saved, 2)
		assert.Equal(t, "2024-03-07", domain.DateKey(*(*saved)[0].RecurrenceRule.EndDate))
		assert.Equal(t, tailID, (*saved)[1].ID)
		assert.Equal(t, 5, (*saved)[1].RecurrenceRule.Count)
		assert.Equal(t, []string{series.ID, tailID}, result.EventIDs)
		f.assertExpectations(t)
	})

	t.Run("retried split without a stored tail creates it", func(t *testing.T) {
		f := newFixture()
		f.committing()
		day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
		series := truncatedStandup(userID, day)
		tailID := domain.DerivedID(series.ID, "split", "2024-03-08")
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		f.repo.On("FindByID", f.txCtx, tailID).Return(nil, domain.ErrEventNotFound)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewEditEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		_, err := handler.Handle(f.ctx, EditEventCommand{
			UserID:         userID,
			EventID:        series.ID,
			Scope:          domain.ScopeThisAndFuture,
			OccurrenceDate: &day,
			Update:         domain.EventUpdate{Title: ptr("Standup v2")},
		})

		require.NoError(t, err)
		require.Len(t, *saved, 2)
		tail := (*saved)[1]
		assert.Equal(t, tailID, tail.ID)
		assert.Equal(t, "Standup v2", tail.Title)
		assert.Equal(t, time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC), tail.StartsAt)
		assert.Nil(t, tail.RecurrenceRule.EndDate)
	})
}
