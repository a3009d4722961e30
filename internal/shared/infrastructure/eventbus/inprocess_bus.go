package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// InProcessBus delivers envelopes synchronously to local consumers. It
// stands in for RabbitMQ in local mode: the outbox processor publishes to it
// and consumer failures surface as publish errors, so the outbox retries.
type InProcessBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
}

// NewInProcessBus creates a bus with an empty registry.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (b *InProcessBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish decodes the envelope and dispatches it. A body that is not an
// envelope is logged and dropped since retrying cannot fix it.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := DecodeEnvelope(payload, routingKey)
	if err != nil {
		b.logger.Error("dropping undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}

	start := time.Now()
	if err := b.registry.Dispatch(ctx, event); err != nil {
		return fmt.Errorf("dispatch %s: %w", routingKey, err)
	}
	b.logger.Debug("event dispatched",
		"routing_key", routingKey,
		"event_id", event.EventID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (b *InProcessBus) Close() error { return nil }
