package eventbus

import (
	"context"
	"log/slog"
)

// Publisher sends serialized envelopes to a message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// NoopPublisher logs and drops everything.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.Debug("noop publish", "routing_key", routingKey, "size", len(payload))
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
