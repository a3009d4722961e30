package subscribers

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// PatternCacheSubscriber drops a user's cached patterns whenever their
// calendar changes.
type PatternCacheSubscriber struct {
	cache  domain.PatternCache
	logger *slog.Logger
}

// NewPatternCacheSubscriber creates a new PatternCacheSubscriber.
func NewPatternCacheSubscriber(cache domain.PatternCache, logger *slog.Logger) *PatternCacheSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternCacheSubscriber{cache: cache, logger: logger}
}

// EventTypes returns the event types this subscriber handles.
func (s *PatternCacheSubscriber) EventTypes() []string {
	return []string{"calendar.#"}
}

// Handle processes an event.
func (s *PatternCacheSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	userID := event.Metadata.UserID
	if userID == uuid.Nil {
		s.logger.DebugContext(ctx, "calendar event without user, cache left alone",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
		)
		return nil
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "pattern cache invalidated",
		"user_id", userID,
		"routing_key", event.RoutingKey,
	)
	return nil
}
