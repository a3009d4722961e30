package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// ConsumerRegistry routes envelopes to the consumers whose patterns match.
type ConsumerRegistry struct {
	mu        sync.RWMutex
	consumers map[string][]EventConsumer
	logger    *slog.Logger
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerRegistry{
		consumers: make(map[string][]EventConsumer),
		logger:    logger,
	}
}

// Register adds a consumer under each of its patterns.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pattern := range consumer.EventTypes() {
		r.consumers[pattern] = append(r.consumers[pattern], consumer)
		r.logger.Debug("registered consumer", "pattern", pattern)
	}
}

// Patterns returns every registered pattern.
func (r *ConsumerRegistry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.consumers))
	for p := range r.consumers {
		out = append(out, p)
	}
	return out
}

// ConsumersFor returns the consumers matching routingKey, each at most once.
func (r *ConsumerRegistry) ConsumersFor(routingKey string) []EventConsumer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []EventConsumer
	seen := make(map[EventConsumer]bool)
	for pattern, consumers := range r.consumers {
		if !MatchTopic(pattern, routingKey) {
			continue
		}
		for _, c := range consumers {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Dispatch delivers event to every matching consumer. All consumers run even
// when one fails; the failures are joined.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, event *ConsumedEvent) error {
	consumers := r.ConsumersFor(event.RoutingKey)
	if len(consumers) == 0 {
		r.logger.Debug("no consumers for event", "routing_key", event.RoutingKey)
		return nil
	}

	var errs []error
	for _, c := range consumers {
		if err := c.Handle(ctx, event); err != nil {
			r.logger.Error("consumer failed to handle event",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MatchTopic reports whether a dot-separated routing key matches a
// topic-exchange pattern.
func MatchTopic(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			for i := 0; i <= len(key); i++ {
				if matchWords(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}
