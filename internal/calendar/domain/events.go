package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/cadence/internal/shared/domain"
)

const (
	AggregateType = "Event"

	RoutingKeyEventCreated       = "calendar.event.created"
	RoutingKeyEventUpdated       = "calendar.event.updated"
	RoutingKeyEventDeleted       = "calendar.event.deleted"
	RoutingKeyOccurrenceDetached = "calendar.occurrence.detached"
	RoutingKeySeriesSplit        = "calendar.series.split"
)

// EventCreated is emitted when an event or series is stored for the first time.
type EventCreated struct {
	sharedDomain.BaseEvent
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	IsRecurring bool      `json:"is_recurring"`
	ParentID    string    `json:"parent_id,omitempty"`
}

// NewEventCreated creates an EventCreated event.
func NewEventCreated(ev Event) *EventCreated {
	return &EventCreated{
		BaseEvent:   sharedDomain.NewBaseEvent(ev.ID, AggregateType, RoutingKeyEventCreated),
		Title:       ev.Title,
		StartsAt:    ev.StartsAt,
		EndsAt:      ev.EndsAt,
		IsRecurring: ev.IsRecurring,
		ParentID:    ev.RecurrenceParentID,
	}
}

// EventUpdated is emitted when a stored event changes.
type EventUpdated struct {
	sharedDomain.BaseEvent
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Exceptions []string  `json:"exceptions,omitempty"`
}

// NewEventUpdated creates an EventUpdated event.
func NewEventUpdated(ev Event) *EventUpdated {
	return &EventUpdated{
		BaseEvent:  sharedDomain.NewBaseEvent(ev.ID, AggregateType, RoutingKeyEventUpdated),
		Title:      ev.Title,
		StartsAt:   ev.StartsAt,
		EndsAt:     ev.EndsAt,
		Exceptions: ev.RecurrenceExceptions,
	}
}

// EventDeleted is emitted when an event is removed.
type EventDeleted struct {
	sharedDomain.BaseEvent
}

// NewEventDeleted creates an EventDeleted event.
func NewEventDeleted(id string) *EventDeleted {
	return &EventDeleted{
		BaseEvent: sharedDomain.NewBaseEvent(id, AggregateType, RoutingKeyEventDeleted),
	}
}

// OccurrenceDetached is emitted when one occurrence is split off a series.
type OccurrenceDetached struct {
	sharedDomain.BaseEvent
	ChildID        string `json:"child_id"`
	OccurrenceDate string `json:"occurrence_date"`
}

// SeriesSplit is emitted when a series is cut at a date and continued by a
// new series.
type SeriesSplit struct {
	sharedDomain.BaseEvent
	NewSeriesID string `json:"new_series_id"`
	SplitDate   string `json:"split_date"`
}

// DomainEventsFor maps an applied mutation set to the events describing it.
func DomainEventsFor(set MutationSet) []sharedDomain.DomainEvent {
	var events []sharedDomain.DomainEvent
	for _, m := range set.Mutations {
		switch m.Kind {
		case MutationCreate:
			events = append(events, NewEventCreated(m.Event))
			if set.Degraded || m.Event.RecurrenceParentID == "" {
				continue
			}
			day := DateKey(m.Event.StartsAt)
			switch set.Scope {
			case ScopeSingle:
				events = append(events, &OccurrenceDetached{
					BaseEvent:      sharedDomain.NewBaseEvent(m.Event.RecurrenceParentID, AggregateType, RoutingKeyOccurrenceDetached),
					ChildID:        m.Event.ID,
					OccurrenceDate: day,
				})
			case ScopeThisAndFuture:
				events = append(events, &SeriesSplit{
					BaseEvent:   sharedDomain.NewBaseEvent(m.Event.RecurrenceParentID, AggregateType, RoutingKeySeriesSplit),
					NewSeriesID: m.Event.ID,
					SplitDate:   day,
				})
			}
		case MutationUpdate:
			events = append(events, NewEventUpdated(m.Event))
		case MutationDelete:
			events = append(events, NewEventDeleted(m.EventID))
		}
	}
	return events
}
