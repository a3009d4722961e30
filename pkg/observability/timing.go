package observability

import (
	"context"
	"log/slog"
	"time"
)

// Timer measures one operation and reports it on Stop.
type Timer struct {
	operation string
	start     time.Time
	logger    *slog.Logger
	metrics   Metrics
	tags      []Tag
}

// StartTimer creates a new timer for the given operation.
func StartTimer(operation string) *Timer {
	return &Timer{operation: operation, start: time.Now()}
}

// WithLogger logs the outcome at debug level, or error on failure.
func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

func (t *Timer) WithTags(tags ...Tag) *Timer {
	t.tags = append(t.tags, tags...)
	return t
}

// Stop records a successful run.
func (t *Timer) Stop(ctx context.Context) time.Duration {
	return t.StopWithError(ctx, nil)
}

// StopWithError records the run and counts it as failed when err is set.
func (t *Timer) StopWithError(ctx context.Context, err error) time.Duration {
	d := time.Since(t.start)

	if t.logger != nil {
		if err != nil {
			t.logger.ErrorContext(ctx, "operation failed",
				"operation", t.operation, "duration_ms", d.Milliseconds(), "error", err)
		} else {
			t.logger.DebugContext(ctx, "operation completed",
				"operation", t.operation, "duration_ms", d.Milliseconds())
		}
	}

	if t.metrics != nil {
		tags := append(append([]Tag(nil), t.tags...), T("operation", t.operation))
		t.metrics.Timing(MetricOperationDuration, d, tags...)
		t.metrics.Counter(MetricOperationTotal, 1, tags...)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, tags...)
		}
	}
	return d
}

// TimeOperationResult times fn as operation.
func TimeOperationResult[T any](ctx context.Context, logger *slog.Logger, metrics Metrics, operation string, fn func() (T, error)) (T, error) {
	timer := StartTimer(operation).WithLogger(logger).WithMetrics(metrics)
	result, err := fn()
	timer.StopWithError(ctx, err)
	return result, err
}
