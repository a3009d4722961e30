package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a scheduled calendar item. A recurring event (a series) carries a
// RecurrenceRule and expands into occurrences; everything else is a single
// dated item.
type Event struct {
	ID          string
	UserID      uuid.UUID
	Title       string
	Description string
	Location    string

	// StartsAt carries the event's authoritative location. Date-only
	// comparisons use the calendar date in that location.
	StartsAt time.Time
	EndsAt   time.Time
	TimeZone string
	IsAllDay bool

	Color    string
	Category string

	IsRecurring          bool
	RecurrenceRule       *RecurrenceRule
	RecurrenceExceptions []string
	RecurrenceParentID   string

	// OccurrenceDate is set on occurrences produced by expansion.
	OccurrenceDate string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEvent creates a non-recurring event with a fresh id.
func NewEvent(userID uuid.UUID, title string, startsAt, endsAt time.Time) (Event, error) {
	now := time.Now().UTC()
	ev := Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		TimeZone:  startsAt.Location().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Validate checks the invariants enforced when events enter the system.
// The expansion and analysis functions never call it; they tolerate bad data.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if e.EndsAt.Before(e.StartsAt) {
		return ErrInvalidTimeRange
	}
	if e.RecurrenceRule != nil {
		if err := e.RecurrenceRule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SetRecurrence makes the event a series governed by rule, or a single event
// when rule is nil.
func (e *Event) SetRecurrence(rule *RecurrenceRule) {
	if rule == nil {
		e.IsRecurring = false
		e.RecurrenceRule = nil
		e.RecurrenceExceptions = nil
		return
	}
	r := rule.Clone()
	e.IsRecurring = true
	e.RecurrenceRule = &r
}

// IsSeries reports whether the event expands through a recurrence rule.
func (e Event) IsSeries() bool {
	return e.IsRecurring && e.RecurrenceRule != nil
}

// IsProjection reports whether the event is an occurrence expanded from a series.
func (e Event) IsProjection() bool {
	return e.OccurrenceDate != ""
}

// Duration returns the length of the event.
func (e Event) Duration() time.Duration {
	return e.EndsAt.Sub(e.StartsAt)
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	c := e
	if e.RecurrenceRule != nil {
		r := e.RecurrenceRule.Clone()
		c.RecurrenceRule = &r
	}
	if e.RecurrenceExceptions != nil {
		c.RecurrenceExceptions = append([]string(nil), e.RecurrenceExceptions...)
	}
	return c
}

// HasException reports whether the local date key is excluded from the series.
func (e Event) HasException(dateKey string) bool {
	for _, ex := range e.RecurrenceExceptions {
		if ex == dateKey {
			return true
		}
	}
	return false
}

// Zone returns the location the event's dates are interpreted in.
func (e Event) Zone() *time.Location {
	if loc := e.StartsAt.Location(); loc != nil {
		return loc
	}
	return time.UTC
}
