package observability

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics records application metrics.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag is a metric label.
type Tag struct {
	Key   string
	Value string
}

// T creates a new Tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// Metric names.
const (
	MetricOperationTotal    = "cadence.operation.total"
	MetricOperationDuration = "cadence.operation.duration"
	MetricOperationErrors   = "cadence.operation.errors"

	MetricOccurrencesExpanded = "cadence.occurrences.expanded"
	MetricSlotSearchDuration  = "cadence.slots.search.duration"
	MetricConflictsDetected   = "cadence.conflicts.detected"
	MetricSeriesEdits         = "cadence.series.edits"

	MetricOutboxPublished = "cadence.outbox.published"
	MetricOutboxFailed    = "cadence.outbox.failed"
	MetricOutboxDead      = "cadence.outbox.dead"

	MetricCalDAVSync = "cadence.caldav.sync"
)

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag) {}
func (NoopMetrics) Gauge(string, float64, ...Tag) {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// InMemoryMetrics keeps metrics in maps keyed by name and sorted tags. It
// backs tests and the CLI's --verbose summary.
type InMemoryMetrics struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metricKey(name, tags)] += value
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metricKey(name, tags)] = value
}

func (m *InMemoryMetrics) Timing(name string, d time.Duration, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metricKey(name, tags)
	m.timings[key] = append(m.timings[key], d)
}

// GetCounter returns the counter for name and exactly these tags.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[metricKey(name, tags)]
}

// GetGauge returns the last gauge value for name and tags.
func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[metricKey(name, tags)]
}

// GetTimings returns every duration recorded for name and tags.
func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]time.Duration(nil), m.timings[metricKey(name, tags)]...)
}

// Counters returns a copy of every counter, keyed as name{k=v,...}.
func (m *InMemoryMetrics) Counters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

func metricKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.Key + "=" + t.Value
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}
