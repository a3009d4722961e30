package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

const (
	insertMessage = `INSERT INTO outbox (
		event_id, aggregate_type, aggregate_id, event_type, routing_key, payload, metadata, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	selectMessages = `SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		payload, metadata, created_at, published_at, next_retry_at, retry_count,
		last_error, dead_lettered_at, dead_letter_reason
	FROM outbox`
)

// SQLRepository stores messages in the outbox table on either driver.
type SQLRepository struct {
	conn database.Connection
}

// NewSQLRepository creates an outbox repository over conn.
func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn}
}

func (r *SQLRepository) Save(ctx context.Context, msg *Message) error {
	return r.insert(ctx, database.ExecutorFromContext(ctx, r.conn), msg)
}

func (r *SQLRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if _, ok := database.TxInfoFromContext(ctx); ok {
		return r.insertAll(ctx, database.ExecutorFromContext(ctx, r.conn), msgs)
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := r.insertAll(ctx, tx, msgs); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *SQLRepository) insertAll(ctx context.Context, exec database.Executor, msgs []*Message) error {
	for _, msg := range msgs {
		if err := r.insert(ctx, exec, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRepository) insert(ctx context.Context, exec database.Executor, msg *Message) error {
	var metadata any
	if len(msg.Metadata) > 0 {
		metadata = string(msg.Metadata)
	}
	return exec.QueryRow(ctx, insertMessage,
		msg.EventID.String(),
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.RoutingKey,
		string(msg.Payload),
		metadata,
		database.FormatTime(msg.CreatedAt),
	).Scan(&msg.ID)
}

func (r *SQLRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	query := selectMessages + `
	WHERE published_at IS NULL AND dead_lettered_at IS NULL
	  AND (next_retry_at IS NULL OR next_retry_at <= ?)
	ORDER BY created_at, id
	LIMIT ?`

	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, database.FormatTime(time.Now()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *SQLRepository) MarkPublished(ctx context.Context, id int64) error {
	return database.ExecAffected(ctx, database.ExecutorFromContext(ctx, r.conn),
		`UPDATE outbox SET published_at = ? WHERE id = ?`,
		database.FormatTime(time.Now()), id)
}

func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return database.ExecAffected(ctx, database.ExecutorFromContext(ctx, r.conn),
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?`,
		errMsg, database.FormatTime(nextRetryAt), id)
}

func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	return database.ExecAffected(ctx, database.ExecutorFromContext(ctx, r.conn),
		`UPDATE outbox SET retry_count = retry_count + 1, dead_lettered_at = ?, dead_letter_reason = ?, last_error = ? WHERE id = ?`,
		database.FormatTime(time.Now()), reason, reason, id)
}

func (r *SQLRepository) DeleteOld(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?`,
		database.FormatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanMessage(row database.Row) (*Message, error) {
	var (
		msg                                      Message
		eventID, payload, createdAt              string
		metadata, publishedAt, nextRetryAt       sql.NullString
		lastError, deadLetteredAt, deadLetterWhy sql.NullString
	)
	err := row.Scan(&msg.ID, &eventID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.RoutingKey,
		&payload, &metadata, &createdAt, &publishedAt, &nextRetryAt, &msg.RetryCount,
		&lastError, &deadLetteredAt, &deadLetterWhy)
	if err != nil {
		return nil, err
	}

	msg.EventID, _ = uuid.Parse(eventID)
	msg.Payload = json.RawMessage(payload)
	if metadata.Valid {
		msg.Metadata = json.RawMessage(metadata.String)
	}
	msg.CreatedAt, _ = database.ParseTime(createdAt)
	msg.PublishedAt = nullTime(publishedAt)
	msg.NextRetryAt = nullTime(nextRetryAt)
	msg.DeadLetteredAt = nullTime(deadLetteredAt)
	if lastError.Valid {
		msg.LastError = &lastError.String
	}
	if deadLetterWhy.Valid {
		msg.DeadLetterReason = &deadLetterWhy.String
	}
	return &msg, nil
}

func nullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := database.ParseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}
