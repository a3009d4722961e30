package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the durable topic exchange for calendar events.
	ExchangeName = "cadence.events"
	// DefaultQueueName is the worker's durable queue.
	DefaultQueueName = "cadence.worker"
)

// dialTopic connects and declares the exchange on a fresh channel.
func dialTopic(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

func closeAll(ch *amqp.Channel, conn *amqp.Connection) error {
	var errs []error
	if ch != nil {
		errs = append(errs, ch.Close())
	}
	if conn != nil {
		errs = append(errs, conn.Close())
	}
	return errors.Join(errs...)
}

// RabbitMQPublisher publishes persistent messages to the topic exchange.
type RabbitMQPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewRabbitMQPublisher dials url and declares the exchange.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, ch, err := dialTopic(url, ExchangeName)
	if err != nil {
		return nil, err
	}
	logger.Info("rabbitmq publisher connected", "exchange", ExchangeName)
	return &RabbitMQPublisher{conn: conn, channel: ch, logger: logger}, nil
}

// Publish sends payload with the given routing key. The channel is not safe
// for concurrent use, hence the lock.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.Debug("message published", "routing_key", routingKey, "size", len(payload))
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return closeAll(p.channel, p.conn)
}

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL       string
	QueueName string
	Logger    *slog.Logger
}

// RabbitMQConsumer feeds a durable queue into a ConsumerRegistry.
type RabbitMQConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	registry *ConsumerRegistry
	logger   *slog.Logger
}

// NewRabbitMQConsumer declares the queue and binds every pattern currently
// in registry to it.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultQueueName
	}

	conn, ch, err := dialTopic(cfg.URL, ExchangeName)
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		_ = closeAll(ch, conn)
		return nil, fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}
	for _, pattern := range registry.Patterns() {
		if err := ch.QueueBind(cfg.QueueName, pattern, ExchangeName, false, nil); err != nil {
			_ = closeAll(ch, conn)
			return nil, fmt.Errorf("bind %s: %w", pattern, err)
		}
	}

	cfg.Logger.Info("rabbitmq consumer connected", "queue", cfg.QueueName, "exchange", ExchangeName)
	return &RabbitMQConsumer{
		conn:     conn,
		channel:  ch,
		queue:    cfg.QueueName,
		registry: registry,
		logger:   cfg.Logger,
	}, nil
}

// Run consumes until ctx is cancelled. Failed deliveries are requeued;
// undecodable ones are acknowledged and dropped.
func (c *RabbitMQConsumer) Run(ctx context.Context) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.logger.Info("consuming events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) {
	event, err := DecodeEnvelope(d.Body, d.RoutingKey)
	if err != nil {
		c.logger.Error("dropping undecodable event", "routing_key", d.RoutingKey, "error", err)
		_ = d.Ack(false)
		return
	}
	if err := c.registry.Dispatch(ctx, event); err != nil {
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack delivery", "error", nackErr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("failed to ack delivery", "error", err)
	}
}

func (c *RabbitMQConsumer) Close() error {
	return closeAll(c.channel, c.conn)
}
