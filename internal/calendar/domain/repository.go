package domain

import (
	"context"

	"github.com/google/uuid"
)

// EventRepository stores events and series.
type EventRepository interface {
	// Save inserts or replaces the event with the same id.
	Save(ctx context.Context, ev Event) error
	FindByID(ctx context.Context, id string) (*Event, error)
	// FindByUser returns all of a user's events ordered by start.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Event, error)
	Delete(ctx context.Context, id string) error
}

// CorrectionStore remembers the categories a user assigned by hand, keyed by
// normalized title.
type CorrectionStore interface {
	Load(ctx context.Context, userID uuid.UUID) (Corrections, error)
	Save(ctx context.Context, userID uuid.UUID, normalizedTitle, category string) error
}
