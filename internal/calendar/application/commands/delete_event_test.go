package commands

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteEventHandler_Handle(t *testing.T) {
	userID := uuid.New()

	t.Run("all scope deletes the series", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		f.repo.On("Delete", f.txCtx, series.ID).Return(nil)
		msgs := f.captureOutbox()
		handler := NewDeleteEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, DeleteEventCommand{UserID: userID, EventID: series.ID})

		require.NoError(t, err)
		assert.Equal(t, domain.ScopeAll, result.Scope)
		assert.Equal(t, []string{series.ID}, result.Deleted)
		assert.Equal(t, []string{domain.RoutingKeyEventDeleted}, routingKeys(*msgs))
		f.assertExpectations(t)
	})

	t.Run("single scope adds an exception", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewDeleteEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, DeleteEventCommand{
			UserID:  userID,
			EventID: domain.OccurrenceID(series.ID, "2024-03-05"),
			Scope:   domain.ScopeSingle,
		})

		require.NoError(t, err)
		assert.Empty(t, result.Deleted)
		assert.Equal(t, []string{series.ID}, result.Updated)
		require.Len(t, *saved, 1)
		assert.Equal(t, []string{"2024-03-05"}, (*saved)[0].RecurrenceExceptions)
	})

	t.Run("this and future truncates the rule", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series := dailyStandup(userID)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewDeleteEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)
		date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

		_, err := handler.Handle(f.ctx, DeleteEventCommand{
			UserID: userID, EventID: series.ID, Scope: domain.ScopeThisAndFuture, OccurrenceDate: &date,
		})

		require.NoError(t, err)
		require.Len(t, *saved, 1)
		assert.Equal(t, "2024-03-09", domain.DateKey(*(*saved)[0].RecurrenceRule.EndDate))
	})

	t.Run("series scope on a single event degrades to a delete", func(t *testing.T) {
		f := newFixture()
		f.committing()
		ev := singleEvent(userID)
		f.repo.On("FindByID", f.txCtx, ev.ID).Return(ev, nil)
		f.repo.On("Delete", f.txCtx, ev.ID).Return(nil)
		f.captureOutbox()
		handler := NewDeleteEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, DeleteEventCommand{UserID: userID, EventID: ev.ID, Scope: domain.ScopeThisAndFuture})

		require.NoError(t, err)
		assert.True(t, result.Degraded)
		assert.Equal(t, []string{ev.ID}, result.Deleted)
	})

	t.Run("missing event", func(t *testing.T) {
		f := newFixture()
		f.rollingBack()
		f.repo.On("FindByID", f.txCtx, "nope").Return(nil, domain.ErrEventNotFound)
		handler := NewDeleteEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, DeleteEventCommand{UserID: userID, EventID: "nope"})

		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		assert.Nil(t, result)
	})
}

func TestDeleteEventHandler_AfterEarlierEdits(t *testing.T) {
	userID := uuid.New()

	t.Run("deleting an edited occurrence removes its child", func(t *testing.T) {
		f := newFixture()
		f.committing()
		series, child := detachedStandup(userID, "2024-03-06", "Dentist")
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		f.repo.On("FindByID", f.txCtx, child.ID).Return(child, nil)
		f.repo.On("Delete", f.txCtx, child.ID).Return(nil)
		saved := f.captureSaves()
		msgs := f.captureOutbox()
		handler := NewDeleteEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, DeleteEventCommand{
			UserID:  userID,
			EventID: domain.OccurrenceID(series.ID, "2024-03-06"),
			Scope:   domain.ScopeSingle,
		})

		require.NoError(t, err)
		require.Len(t, *saved, 1)
		assert.Equal(t, []string{"2024-03-06"}, (*saved)[0].RecurrenceExceptions)
		assert.Equal(t, []string{child.ID}, result.Deleted)
		assert.Equal(t, []string{domain.RoutingKeyEventUpdated, domain.RoutingKeyEventDeleted}, routingKeys(*msgs))
		f.assertExpectations(t)
	})

	t.Run("retried this and future delete succeeds", func(t *testing.T) {
		f := newFixture()
		f.committing()
		day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		series := truncatedStandup(userID, day)
		f.repo.On("FindByID", f.txCtx, series.ID).Return(series, nil)
		saved := f.captureSaves()
		f.captureOutbox()
		handler := NewDeleteEventHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, DeleteEventCommand{
			UserID: userID, EventID: series.ID, Scope: domain.ScopeThisAndFuture, OccurrenceDate: &day,
		})

		require.NoError(t, err)
		assert.Equal(t, []string{series.ID}, result.Updated)
		require.Len(t, *saved, 1)
		assert.Equal(t, "2024-03-09", domain.DateKey(*(*saved)[0].RecurrenceRule.EndDate))
	})
}
