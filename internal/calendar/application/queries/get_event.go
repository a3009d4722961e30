package queries

import (
	"context"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/google/uuid"
)

// GetEventQuery looks up a stored event or a single occurrence by its id.
type GetEventQuery struct {
	UserID  uuid.UUID
	EventID string
}

// GetEventHandler handles the GetEventQuery.
type GetEventHandler struct {
	eventRepo domain.EventRepository
	expander  *domain.Expander
}

// NewGetEventHandler creates a new GetEventHandler.
func NewGetEventHandler(eventRepo domain.EventRepository, expander *domain.Expander) *GetEventHandler {
	if expander == nil {
		expander = domain.NewExpander(domain.DefaultMaxOccurrences, nil)
	}
	return &GetEventHandler{eventRepo: eventRepo, expander: expander}
}

// Handle executes the GetEventQuery. Occurrence ids resolve to the projected
// occurrence, or ErrEventNotFound when the series has none that day.
func (h *GetEventHandler) Handle(ctx context.Context, query GetEventQuery) (*EventDTO, error) {
	seriesID, key, err := domain.ParseOccurrenceID(query.EventID)
	if err != nil {
		ev, err := h.find(ctx, query.UserID, query.EventID)
		if err != nil {
			return nil, err
		}
		dto := ToDTO(*ev)
		return &dto, nil
	}

	series, err := h.find(ctx, query.UserID, seriesID)
	if err != nil {
		return nil, err
	}
	day, err := domain.ParseDateKey(key, series.Zone())
	if err != nil {
		return nil, err
	}
	for _, occ := range h.expander.Expand(*series, day, domain.EndOfDay(day)) {
		if occ.OccurrenceDate == key {
			dto := ToDTO(occ)
			return &dto, nil
		}
	}
	return nil, domain.ErrEventNotFound
}

func (h *GetEventHandler) find(ctx context.Context, userID uuid.UUID, id string) (*domain.Event, error) {
	ev, err := h.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil || ev.UserID != userID {
		return nil, domain.ErrEventNotFound
	}
	return ev, nil
}
