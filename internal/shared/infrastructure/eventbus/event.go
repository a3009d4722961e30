package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/cadence/internal/shared/domain"
	"github.com/google/uuid"
)

// ConsumedEvent is the envelope carried on the bus: the identifying fields
// of a domain event plus its serialized body.
type ConsumedEvent struct {
	EventID       uuid.UUID            `json:"event_id"`
	AggregateID   string               `json:"aggregate_id"`
	AggregateType string               `json:"aggregate_type"`
	RoutingKey    string               `json:"routing_key"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Payload       json.RawMessage      `json:"payload"`
	Metadata      domain.EventMetadata `json:"metadata"`
}

// EventConsumer handles the event types it declares.
type EventConsumer interface {
	// EventTypes returns routing key patterns in topic-exchange syntax:
	// "*" matches one word and "#" matches zero or more.
	EventTypes() []string

	Handle(ctx context.Context, event *ConsumedEvent) error
}

// EnvelopeOf wraps a domain event for publication.
func EnvelopeOf(event domain.DomainEvent) (*ConsumedEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &ConsumedEvent{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
		Metadata:      event.Metadata(),
	}, nil
}

// DecodeEnvelope parses a published message body. The transport's routing
// key fills in a missing one.
func DecodeEnvelope(body []byte, routingKey string) (*ConsumedEvent, error) {
	event := &ConsumedEvent{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, err
	}
	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}
	return event, nil
}

// DecodePayload unmarshals the event body into v.
func (e *ConsumedEvent) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
