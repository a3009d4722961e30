package queries

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
)

// ErrInvalidWindow is returned when a window ends before it starts.
var ErrInvalidWindow = errors.New("window end must not be before its start")

// ListOccurrencesQuery asks for everything on a user's calendar whose start
// lies in [Start, End].
type ListOccurrencesQuery struct {
	UserID uuid.UUID
	Start  time.Time
	End    time.Time
	// Category keeps only events of this category when set.
	Category string
}

// ListOccurrencesHandler expands stored events and series over a window.
type ListOccurrencesHandler struct {
	eventRepo domain.EventRepository
	expander  *domain.Expander
	metrics   observability.Metrics
	logger    *slog.Logger
}

// NewListOccurrencesHandler creates a new ListOccurrencesHandler.
func NewListOccurrencesHandler(eventRepo domain.EventRepository, expander *domain.Expander, metrics observability.Metrics, logger *slog.Logger) *ListOccurrencesHandler {
	if expander == nil {
		expander = domain.NewExpander(domain.DefaultMaxOccurrences, logger)
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListOccurrencesHandler{eventRepo: eventRepo, expander: expander, metrics: metrics, logger: logger}
}

// Handle executes the ListOccurrencesQuery.
func (h *ListOccurrencesHandler) Handle(ctx context.Context, query ListOccurrencesQuery) ([]EventDTO, error) {
	if query.End.Before(query.Start) {
		return nil, ErrInvalidWindow
	}
	events, err := h.Occurrences(ctx, query.UserID, query.Start, query.End)
	if err != nil {
		return nil, err
	}
	if query.Category != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Category == query.Category {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	return ToDTOs(events), nil
}

// Occurrences returns the user's single events and series occurrences
// starting in [start, end], ordered by start then id.
func (h *ListOccurrencesHandler) Occurrences(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Event, error) {
	return observability.TimeOperationResult(ctx, h.logger, h.metrics, "list_occurrences", func() ([]domain.Event, error) {
		stored, err := h.eventRepo.FindByUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		var out []domain.Event
		for _, ev := range stored {
			expanded := h.expander.Expand(ev, start, end)
			if ev.IsSeries() {
				h.metrics.Counter(observability.MetricOccurrencesExpanded, int64(len(expanded)))
			}
			out = append(out, expanded...)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].StartsAt.Equal(out[j].StartsAt) {
				return out[i].StartsAt.Before(out[j].StartsAt)
			}
			return out[i].ID < out[j].ID
		})
		return out, nil
	})
}
