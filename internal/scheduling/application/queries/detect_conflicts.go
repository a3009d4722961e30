package queries

import (
	"context"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
)

// candidateID names a proposed event that is not stored yet.
const candidateID = "candidate"

// DetectConflictsQuery asks for every conflict involving an event that
// overlaps [Start, End].
type DetectConflictsQuery struct {
	UserID uuid.UUID
	Start  time.Time
	End    time.Time
}

// CheckConflictQuery asks whether a proposed time clashes with the
// calendar. ExcludeEventID names the event being moved, if any; naming a
// series excludes all of its occurrences.
type CheckConflictQuery struct {
	UserID         uuid.UUID
	Start          time.Time
	End            time.Time
	ExcludeEventID string
}

// DetectConflictsHandler handles both conflict queries.
type DetectConflictsHandler struct {
	source  OccurrenceSource
	metrics observability.Metrics
}

// NewDetectConflictsHandler creates a new DetectConflictsHandler.
func NewDetectConflictsHandler(source OccurrenceSource, metrics observability.Metrics) *DetectConflictsHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &DetectConflictsHandler{source: source, metrics: metrics}
}

// Handle executes the DetectConflictsQuery.
func (h *DetectConflictsHandler) Handle(ctx context.Context, query DetectConflictsQuery) ([]domain.Conflict, error) {
	// Events starting the day before can still run into the window.
	events, err := h.source.Occurrences(ctx, query.UserID, query.Start.AddDate(0, 0, -1), query.End)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]calendarDomain.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	conflicts := make([]domain.Conflict, 0)
	for _, c := range domain.DetectConflicts(events) {
		subject := byID[c.SubjectEventID]
		if subject.StartsAt.After(query.End) || !subject.EndsAt.After(query.Start) {
			continue
		}
		conflicts = append(conflicts, c)
	}
	h.metrics.Counter(observability.MetricConflictsDetected, int64(len(conflicts)))
	return conflicts, nil
}

// Check executes the CheckConflictQuery. It returns nil when the proposed
// time is free.
func (h *DetectConflictsHandler) Check(ctx context.Context, query CheckConflictQuery) (*domain.Conflict, error) {
	events, err := h.source.Occurrences(ctx, query.UserID, query.Start.AddDate(0, 0, -1), query.End)
	if err != nil {
		return nil, err
	}
	id := query.ExcludeEventID
	if id == "" {
		id = candidateID
	} else {
		kept := events[:0:0]
		for _, ev := range events {
			if ev.ID != id && ev.RecurrenceParentID != id {
				kept = append(kept, ev)
			}
		}
		events = kept
	}
	candidate := calendarDomain.Event{ID: id, UserID: query.UserID, StartsAt: query.Start, EndsAt: query.End}
	return domain.DetectConflict(events, candidate), nil
}
