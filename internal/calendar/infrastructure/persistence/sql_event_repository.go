package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

const (
	upsertEvent = `INSERT INTO events (
		id, user_id, title, description, location, starts_at, ends_at, time_zone,
		is_all_day, color, category, recurrence_rule, recurrence_exceptions,
		recurrence_parent_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		location = excluded.location,
		starts_at = excluded.starts_at,
		ends_at = excluded.ends_at,
		time_zone = excluded.time_zone,
		is_all_day = excluded.is_all_day,
		color = excluded.color,
		category = excluded.category,
		recurrence_rule = excluded.recurrence_rule,
		recurrence_exceptions = excluded.recurrence_exceptions,
		recurrence_parent_id = excluded.recurrence_parent_id,
		updated_at = excluded.updated_at`

	selectEvents = `SELECT id, user_id, title, description, location, starts_at, ends_at,
		time_zone, is_all_day, color, category, recurrence_rule, recurrence_exceptions,
		recurrence_parent_id, created_at, updated_at
	FROM events`
)

// SQLEventRepository implements domain.EventRepository on either database
// driver. It joins the transaction carried by the context when there is one.
type SQLEventRepository struct {
	conn database.Connection
}

// NewSQLEventRepository creates a new event repository.
func NewSQLEventRepository(conn database.Connection) *SQLEventRepository {
	return &SQLEventRepository{conn: conn}
}

// Save inserts or replaces an event. The owner of an existing id never changes.
func (r *SQLEventRepository) Save(ctx context.Context, ev domain.Event) error {
	var rule any
	if ev.IsSeries() {
		data, err := json.Marshal(domain.RuleInputFrom(*ev.RecurrenceRule))
		if err != nil {
			return err
		}
		rule = string(data)
	}
	exceptions := ev.RecurrenceExceptions
	if exceptions == nil {
		exceptions = []string{}
	}
	exceptionsJSON, err := json.Marshal(exceptions)
	if err != nil {
		return err
	}

	timeZone := ev.TimeZone
	if timeZone == "" {
		timeZone = ev.Zone().String()
	}
	createdAt, updatedAt := ev.CreatedAt, ev.UpdatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = r.exec(ctx).Exec(ctx, upsertEvent,
		ev.ID,
		ev.UserID.String(),
		ev.Title,
		ev.Description,
		ev.Location,
		database.FormatTime(ev.StartsAt),
		database.FormatTime(ev.EndsAt),
		timeZone,
		boolToInt(ev.IsAllDay),
		ev.Color,
		ev.Category,
		rule,
		string(exceptionsJSON),
		ev.RecurrenceParentID,
		database.FormatTime(createdAt),
		database.FormatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save event %s: %w", ev.ID, err)
	}
	return nil
}

// FindByID returns domain.ErrEventNotFound when no event has id.
func (r *SQLEventRepository) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.exec(ctx).QueryRow(ctx, selectEvents+` WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, database.NotFound(err, domain.ErrEventNotFound)
	}
	return &ev, nil
}

// FindByUser returns the user's events ordered by start, then id.
func (r *SQLEventRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Event, error) {
	rows, err := r.exec(ctx).Query(ctx, selectEvents+` WHERE user_id = ? ORDER BY starts_at, id`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Delete returns domain.ErrEventNotFound when no event has id.
func (r *SQLEventRepository) Delete(ctx context.Context, id string) error {
	err := database.ExecAffected(ctx, r.exec(ctx), `DELETE FROM events WHERE id = ?`, id)
	return database.NotFound(err, domain.ErrEventNotFound)
}

func (r *SQLEventRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

func scanEvent(row database.Row) (domain.Event, error) {
	var (
		ev                       domain.Event
		userID, startsAt, endsAt string
		createdAt, updatedAt     string
		isAllDay                 int
		rule                     *string
		exceptions               string
	)
	err := row.Scan(
		&ev.ID, &userID, &ev.Title, &ev.Description, &ev.Location,
		&startsAt, &endsAt, &ev.TimeZone, &isAllDay, &ev.Color, &ev.Category,
		&rule, &exceptions, &ev.RecurrenceParentID, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}

	if ev.UserID, err = uuid.Parse(userID); err != nil {
		return domain.Event{}, fmt.Errorf("event %s: user id: %w", ev.ID, err)
	}
	loc, err := time.LoadLocation(ev.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	if ev.StartsAt, err = parseIn(startsAt, loc); err != nil {
		return domain.Event{}, err
	}
	if ev.EndsAt, err = parseIn(endsAt, loc); err != nil {
		return domain.Event{}, err
	}
	if ev.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return domain.Event{}, err
	}
	if ev.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return domain.Event{}, err
	}
	ev.IsAllDay = isAllDay != 0

	if rule != nil && *rule != "" {
		parsed, err := domain.ParseRuleInput([]byte(*rule))
		if err != nil {
			return domain.Event{}, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		ev.SetRecurrence(&parsed)
	}
	if exceptions != "" {
		if err := json.Unmarshal([]byte(exceptions), &ev.RecurrenceExceptions); err != nil {
			return domain.Event{}, fmt.Errorf("event %s: exceptions: %w", ev.ID, err)
		}
		if len(ev.RecurrenceExceptions) == 0 {
			ev.RecurrenceExceptions = nil
		}
	}
	return ev, nil
}

func parseIn(s string, loc *time.Location) (time.Time, error) {
	t, err := database.ParseTime(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ domain.EventRepository = (*SQLEventRepository)(nil)
