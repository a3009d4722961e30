package outbox

import (
	"context"
	"time"
)

// Repository persists outbox messages.
type Repository interface {
	// Save stores a new outbox message and sets its ID.
	Save(ctx context.Context, msg *Message) error

	// SaveBatch stores messages in the transaction carried by ctx, or in a
	// new one.
	SaveBatch(ctx context.Context, msgs []*Message) error

	// GetUnpublished returns messages that are neither published nor dead
	// and whose retry time has passed, oldest first.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error
	MarkDead(ctx context.Context, id int64, reason string) error

	// DeleteOld removes messages published before cutoff.
	DeleteOld(ctx context.Context, cutoff time.Time) (int64, error)
}
