package outbox

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/cadence/pkg/observability"
)

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	// Retention is how long published messages are kept. Zero keeps them.
	Retention time.Duration
}

// DefaultProcessorConfig returns the worker defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     time.Second,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
		Retention:        7 * 24 * time.Hour,
	}
}

// Stats counts processor outcomes since start.
type Stats struct {
	Published uint64
	Failed    uint64
	Dead      uint64
	Purged    uint64
}

// Processor relays outbox messages to a publisher, retrying failures with
// exponential backoff and dead-lettering after MaxRetries attempts.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger
	metrics   observability.Metrics

	published, failed, dead, purged atomic.Uint64
}

// NewProcessor creates a new outbox processor.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger, metrics observability.Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultProcessorConfig().BatchSize
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run polls until ctx is cancelled. Published messages older than the
// retention period are purged once per hour.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
	)
	defer p.logger.Info("outbox processor stopped")

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()
	purge := time.NewTicker(time.Hour)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			if err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("failed to process outbox batch", "error", err)
			}
		case <-purge.C:
			if _, err := p.Purge(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("failed to purge outbox", "error", err)
			}
		}
	}
}

// ProcessOnce publishes one batch synchronously.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	messages, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		p.relay(ctx, msg)
	}
	return nil
}

func (p *Processor) relay(ctx context.Context, msg *Message) {
	md := msg.EventMetadata()
	log := p.logger.With(
		"id", msg.ID,
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
		"correlation_id", md.CorrelationID,
	)

	body, err := msg.Envelope()
	if err != nil {
		log.Error("failed to encode envelope", "error", err)
		return
	}
	pubErr := p.publisher.Publish(ctx, msg.RoutingKey, body)
	if pubErr == nil {
		if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
			log.Error("failed to mark message as published", "error", err)
			return
		}
		p.published.Add(1)
		p.metrics.Counter(observability.MetricOutboxPublished, 1, observability.T("routing_key", msg.RoutingKey))
		return
	}

	log.Warn("failed to publish message", "attempt", msg.RetryCount+1, "error", pubErr)
	if p.exhausted(msg) {
		p.dead.Add(1)
		p.metrics.Counter(observability.MetricOutboxDead, 1, observability.T("routing_key", msg.RoutingKey))
		if err := p.repo.MarkDead(ctx, msg.ID, pubErr.Error()); err != nil {
			log.Error("failed to dead-letter message", "error", err)
		}
		return
	}

	p.failed.Add(1)
	p.metrics.Counter(observability.MetricOutboxFailed, 1, observability.T("routing_key", msg.RoutingKey))
	next := time.Now().Add(p.backoff(msg.RetryCount + 1))
	if err := p.repo.MarkFailed(ctx, msg.ID, pubErr.Error(), next); err != nil {
		log.Error("failed to mark message as failed", "error", err)
	}
}

// Purge deletes published messages past the retention period.
func (p *Processor) Purge(ctx context.Context) (int64, error) {
	if p.config.Retention <= 0 {
		return 0, nil
	}
	n, err := p.repo.DeleteOld(ctx, time.Now().Add(-p.config.Retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.purged.Add(uint64(n))
		p.logger.Info("purged published outbox messages", "count", n)
	}
	return n, nil
}

func (p *Processor) exhausted(msg *Message) bool {
	return p.config.MaxRetries <= 0 || msg.RetryCount+1 >= p.config.MaxRetries
}

// backoff doubles from RetryBackoffBase per attempt, capped at
// RetryBackoffMax.
func (p *Processor) backoff(attempt int) time.Duration {
	base, ceiling := p.config.RetryBackoffBase, p.config.RetryBackoffMax
	if base <= 0 {
		base = time.Second
	}
	if ceiling <= 0 {
		ceiling = time.Minute
	}
	d := base
	for i := 1; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

// Stats returns outcome counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dead:      p.dead.Load(),
		Purged:    p.purged.Load(),
	}
}
