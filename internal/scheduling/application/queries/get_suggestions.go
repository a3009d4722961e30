package queries

import (
	"context"
	"log/slog"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/google/uuid"
)

// GetSuggestionsQuery asks for proactive hints about the coming week.
type GetSuggestionsQuery struct {
	UserID          uuid.UUID
	Now             time.Time
	IncompleteTodos int
	// IncludeDismissed keeps suggestions the user already dismissed.
	IncludeDismissed bool
}

// GetSuggestionsHandler handles the GetSuggestionsQuery.
type GetSuggestionsHandler struct {
	source     OccurrenceSource
	patterns   *GetPatternsHandler
	dismissals domain.DismissalStore
	logger     *slog.Logger
}

// NewGetSuggestionsHandler creates a new GetSuggestionsHandler. dismissals
// may be nil.
func NewGetSuggestionsHandler(source OccurrenceSource, patterns *GetPatternsHandler, dismissals domain.DismissalStore, logger *slog.Logger) *GetSuggestionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetSuggestionsHandler{source: source, patterns: patterns, dismissals: dismissals, logger: logger}
}

// Handle executes the GetSuggestionsQuery.
func (h *GetSuggestionsHandler) Handle(ctx context.Context, query GetSuggestionsQuery) ([]domain.Suggestion, error) {
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	patterns, err := h.patterns.Handle(ctx, GetPatternsQuery{UserID: query.UserID, Now: now})
	if err != nil {
		return nil, err
	}
	today := calendarDomain.StartOfDay(now)
	events, err := h.source.Occurrences(ctx, query.UserID, today, today.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}

	suggestions := domain.GenerateSuggestions(events, patterns, domain.SuggestionContext{
		Now:             now,
		IncompleteTodos: query.IncompleteTodos,
	})
	if query.IncludeDismissed || h.dismissals == nil {
		return suggestions, nil
	}

	dismissed, err := h.dismissals.Dismissed(ctx, query.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "dismissed suggestions unavailable", "error", err)
		return suggestions, nil
	}
	visible := suggestions[:0]
	for _, s := range suggestions {
		if !dismissed[s.ID] {
			visible = append(visible, s)
		}
	}
	return visible, nil
}
