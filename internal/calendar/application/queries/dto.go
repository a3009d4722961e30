package queries

import (
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
)

// EventDTO is a data transfer object for events and occurrences.
type EventDTO struct {
	ID             string            `json:"id"`
	SeriesID       string            `json:"series_id,omitempty"`
	OccurrenceDate string            `json:"occurrence_date,omitempty"`
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
	Location       string            `json:"location,omitempty"`
	StartsAt       time.Time         `json:"starts_at"`
	EndsAt         time.Time         `json:"ends_at"`
	TimeZone       string            `json:"time_zone,omitempty"`
	IsAllDay       bool              `json:"is_all_day"`
	Color          string            `json:"color,omitempty"`
	Category       string            `json:"category,omitempty"`
	IsRecurring    bool              `json:"is_recurring"`
	Recurrence     *domain.RuleInput `json:"recurrence,omitempty"`
	Exceptions     []string          `json:"exceptions,omitempty"`
}

// ToDTO converts an event.
func ToDTO(ev domain.Event) EventDTO {
	dto := EventDTO{
		ID:             ev.ID,
		SeriesID:       ev.RecurrenceParentID,
		OccurrenceDate: ev.OccurrenceDate,
		Title:          ev.Title,
		Description:    ev.Description,
		Location:       ev.Location,
		StartsAt:       ev.StartsAt,
		EndsAt:         ev.EndsAt,
		TimeZone:       ev.TimeZone,
		IsAllDay:       ev.IsAllDay,
		Color:          ev.Color,
		Category:       ev.Category,
		IsRecurring:    ev.IsSeries(),
		Exceptions:     ev.RecurrenceExceptions,
	}
	if ev.RecurrenceRule != nil {
		rule := domain.RuleInputFrom(*ev.RecurrenceRule)
		dto.Recurrence = &rule
	}
	return dto
}

// ToDTOs converts a slice of events.
func ToDTOs(events []domain.Event) []EventDTO {
	out := make([]EventDTO, len(events))
	for i, ev := range events {
		out[i] = ToDTO(ev)
	}
	return out
}
