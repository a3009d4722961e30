package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents something that happened in the domain.
// Aggregate ids are opaque strings so that externally sourced calendar
// objects can keep their own identifiers.
type DomainEvent interface {
	EventID() uuid.UUID
	AggregateID() string
	AggregateType() string
	RoutingKey() string
	OccurredAt() time.Time
	Metadata() EventMetadata
}

// EventMetadata contains tracing and context information for events.
type EventMetadata struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	CausationID   uuid.UUID `json:"causation_id"`
	UserID        uuid.UUID `json:"user_id"`
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	eventID       uuid.UUID
	aggregateID   string
	aggregateType string
	routingKey    string
	occurredAt    time.Time
	metadata      EventMetadata
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(aggregateID, aggregateType, routingKey string) BaseEvent {
	return BaseEvent{
		eventID:       uuid.New(),
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		routingKey:    routingKey,
		occurredAt:    time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() uuid.UUID      { return e.eventID }
func (e BaseEvent) AggregateID() string     { return e.aggregateID }
func (e BaseEvent) AggregateType() string   { return e.aggregateType }
func (e BaseEvent) RoutingKey() string      { return e.routingKey }
func (e BaseEvent) OccurredAt() time.Time   { return e.occurredAt }
func (e BaseEvent) Metadata() EventMetadata { return e.metadata }

// SetMetadata sets the event metadata.
func (e *BaseEvent) SetMetadata(metadata EventMetadata) {
	e.metadata = metadata
}
