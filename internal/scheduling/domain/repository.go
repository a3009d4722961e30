package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PatternCache keeps analyzed patterns between requests. Get returns nil
// and no error on a miss.
type PatternCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserPatterns, error)
	Set(ctx context.Context, userID uuid.UUID, patterns UserPatterns, ttl time.Duration) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// DismissalStore remembers the suggestion ids a user dismissed.
type DismissalStore interface {
	Dismiss(ctx context.Context, userID uuid.UUID, suggestionID string) error
	Dismissed(ctx context.Context, userID uuid.UUID) (map[string]bool, error)
}
