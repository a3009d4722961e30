package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// applyMutations stores every mutation of set and the domain events
// describing it. It must run inside a unit of work.
func applyMutations(ctx context.Context, repo domain.EventRepository, outboxRepo outbox.Repository, userID uuid.UUID, set domain.MutationSet) error {
	now := time.Now().UTC()
	for _, m := range set.Mutations {
		switch m.Kind {
		case domain.MutationCreate:
			ev := m.Event
			ev.CreatedAt = now
			ev.UpdatedAt = now
			if err := repo.Save(ctx, ev); err != nil {
				return fmt.Errorf("create event %s: %w", ev.ID, err)
			}
		case domain.MutationUpdate:
			ev := m.Event
			ev.UpdatedAt = now
			if err := repo.Save(ctx, ev); err != nil {
				return fmt.Errorf("update event %s: %w", ev.ID, err)
			}
		case domain.MutationDelete:
			err := repo.Delete(ctx, m.EventID)
			if err != nil && !errors.Is(err, domain.ErrEventNotFound) {
				return fmt.Errorf("delete event %s: %w", m.EventID, err)
			}
		}
	}

	events := domain.DomainEventsFor(set)
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, userID))
	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	return outboxRepo.SaveBatch(ctx, msgs)
}

// resolveTarget splits an event reference into the stored event id and, for
// occurrence ids, the occurrence date. An explicit date wins.
func resolveTarget(eventID string, occurrenceDate *time.Time) (string, *time.Time, error) {
	seriesID, key, err := domain.ParseOccurrenceID(eventID)
	if err != nil {
		return eventID, occurrenceDate, nil
	}
	if occurrenceDate != nil {
		return seriesID, occurrenceDate, nil
	}
	day, err := domain.ParseDateKey(key, time.UTC)
	if err != nil {
		return "", nil, err
	}
	return seriesID, &day, nil
}

// loadOwned fetches an event and checks it belongs to userID.
func loadOwned(ctx context.Context, repo domain.EventRepository, userID uuid.UUID, id string) (*domain.Event, error) {
	ev, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil || ev.UserID != userID {
		return nil, domain.ErrEventNotFound
	}
	return ev, nil
}

// findDerived loads an event derived from a series, returning nil when it
// was never stored.
func findDerived(ctx context.Context, repo domain.EventRepository, userID uuid.UUID, id string) (*domain.Event, error) {
	ev, err := loadOwned(ctx, repo, userID, id)
	if errors.Is(err, domain.ErrEventNotFound) {
		return nil, nil
	}
	return ev, err
}
