package commands

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestImportEventsHandler_Handle(t *testing.T) {
	userID := uuid.New()

	t.Run("creates new and updates existing events", func(t *testing.T) {
		f := newFixture()
		f.committing()
		saved := f.captureSaves()
		msgs := f.captureOutbox()

		existing := singleEvent(userID)
		f.repo.On("FindByID", f.txCtx, "single-1").Return(existing, nil)
		f.repo.On("FindByID", f.txCtx, "series-1").Return(nil, domain.ErrEventNotFound)

		incoming := *singleEvent(uuid.Nil)
		incoming.Title = "Dentist (moved)"
		series := *dailyStandup(uuid.Nil)
		series.Category = ""

		handler := NewImportEventsHandler(f.repo, f.outboxRepo, f.uow, nil, nil)
		result, err := handler.Handle(f.ctx, ImportEventsCommand{UserID: userID, Events: []domain.Event{incoming, series}})

		require.NoError(t, err)
		assert.Equal(t, &ImportEventsResult{Created: 1, Updated: 1}, result)
		require.Len(t, *saved, 2)
		for _, ev := range *saved {
			assert.Equal(t, userID, ev.UserID)
		}
		assert.Equal(t, "Dentist (moved)", (*saved)[0].Title)
		assert.Equal(t, domain.CategoryMeeting, (*saved)[1].Category)
		assert.ElementsMatch(t,
			[]string{domain.RoutingKeyEventUpdated, domain.RoutingKeyEventCreated},
			routingKeys(*msgs),
		)
		f.assertExpectations(t)
	})

	t.Run("skips invalid events and foreign ids", func(t *testing.T) {
		f := newFixture()
		f.committing()
		f.repo.On("FindByID", f.txCtx, "single-1").Return(singleEvent(uuid.New()), nil)

		invalid := *singleEvent(uuid.Nil)
		invalid.ID = "broken"
		invalid.EndsAt = invalid.StartsAt.Add(-1)

		handler := NewImportEventsHandler(f.repo, f.outboxRepo, f.uow, nil, nil)
		result, err := handler.Handle(f.ctx, ImportEventsCommand{
			UserID: userID,
			Events: []domain.Event{invalid, *singleEvent(uuid.Nil)},
		})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Skipped)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.outboxRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("lookup failure rolls back", func(t *testing.T) {
		f := newFixture()
		f.rollingBack()
		f.repo.On("FindByID", f.txCtx, "single-1").Return(nil, errors.New("disk on fire"))

		handler := NewImportEventsHandler(f.repo, f.outboxRepo, f.uow, nil, nil)
		_, err := handler.Handle(f.ctx, ImportEventsCommand{UserID: userID, Events: []domain.Event{*singleEvent(uuid.Nil)}})

		require.Error(t, err)
		f.assertExpectations(t)
	})

	t.Run("nothing to import", func(t *testing.T) {
		f := newFixture()
		handler := NewImportEventsHandler(f.repo, f.outboxRepo, f.uow, nil, nil)

		result, err := handler.Handle(f.ctx, ImportEventsCommand{UserID: userID})

		require.NoError(t, err)
		assert.Equal(t, &ImportEventsResult{}, result)
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})
}
