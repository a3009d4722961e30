package queries

import (
	"context"
	"log/slog"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
)

// FindSlotsQuery asks for the best places to put a new event on a date.
type FindSlotsQuery struct {
	UserID          uuid.UUID
	Date            time.Time
	DurationMinutes int
}

// FindSlotsHandler handles the FindSlotsQuery.
type FindSlotsHandler struct {
	source          OccurrenceSource
	patterns        *GetPatternsHandler
	defaultDuration int
	metrics         observability.Metrics
	logger          *slog.Logger
}

// NewFindSlotsHandler creates a new FindSlotsHandler. defaultDuration
// applies when a query names no duration.
func NewFindSlotsHandler(source OccurrenceSource, patterns *GetPatternsHandler, defaultDuration int, metrics observability.Metrics, logger *slog.Logger) *FindSlotsHandler {
	if defaultDuration <= 0 {
		defaultDuration = 60
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FindSlotsHandler{
		source:          source,
		patterns:        patterns,
		defaultDuration: defaultDuration,
		metrics:         metrics,
		logger:          logger,
	}
}

// Handle executes the FindSlotsQuery.
func (h *FindSlotsHandler) Handle(ctx context.Context, query FindSlotsQuery) ([]domain.TimeSlot, error) {
	duration := query.DurationMinutes
	if duration == 0 {
		duration = h.defaultDuration
	}

	patterns, err := h.patterns.Handle(ctx, GetPatternsQuery{UserID: query.UserID})
	if err != nil {
		return nil, err
	}

	day := calendarDomain.StartOfDay(query.Date)
	// Events starting the day before can run into the target date.
	events, err := h.source.Occurrences(ctx, query.UserID, day.AddDate(0, 0, -1), calendarDomain.EndOfDay(day))
	if err != nil {
		return nil, err
	}

	timer := observability.StartTimer("find_slots").WithLogger(h.logger)
	slots := domain.FindOptimalSlots(events, day, duration, patterns)
	h.metrics.Timing(observability.MetricSlotSearchDuration, timer.Stop(ctx))
	return slots, nil
}
