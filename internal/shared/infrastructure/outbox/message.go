package outbox

import (
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/cadence/internal/shared/domain"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// Message is a domain event stored for publication alongside the state
// change that produced it.
type Message struct {
	ID               int64
	EventID          uuid.UUID
	AggregateType    string
	AggregateID      string
	EventType        string
	RoutingKey       string
	Payload          json.RawMessage
	Metadata         json.RawMessage
	CreatedAt        time.Time
	PublishedAt      *time.Time
	NextRetryAt      *time.Time
	RetryCount       int
	LastError        *string
	DeadLetteredAt   *time.Time
	DeadLetterReason *string
}

// NewMessage serializes event into an unpublished message. The routing key
// doubles as the event type.
func NewMessage(event domain.DomainEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(event.Metadata())
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:       event.EventID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		EventType:     event.RoutingKey(),
		RoutingKey:    event.RoutingKey(),
		Payload:       payload,
		Metadata:      metadata,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// NewMessages converts a batch of events, failing on the first error.
func NewMessages(events []domain.DomainEvent) ([]*Message, error) {
	msgs := make([]*Message, 0, len(events))
	for _, event := range events {
		msg, err := NewMessage(event)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// IsPublished returns true if the message has been published.
func (m *Message) IsPublished() bool {
	return m.PublishedAt != nil
}

// CanRetry returns true if another publish attempt is allowed.
func (m *Message) CanRetry(maxRetries int) bool {
	return m.RetryCount < maxRetries
}

// EventMetadata decodes the stored metadata, returning the zero value when
// it is absent or malformed.
func (m *Message) EventMetadata() domain.EventMetadata {
	var md domain.EventMetadata
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &md)
	}
	return md
}

// Envelope renders the message as the body published on the bus.
func (m *Message) Envelope() ([]byte, error) {
	return json.Marshal(eventbus.ConsumedEvent{
		EventID:       m.EventID,
		AggregateID:   m.AggregateID,
		AggregateType: m.AggregateType,
		RoutingKey:    m.RoutingKey,
		OccurredAt:    m.CreatedAt,
		Payload:       m.Payload,
		Metadata:      m.EventMetadata(),
	})
}
