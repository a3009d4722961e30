package database

import (
	"context"
	"database/sql"
)

// Row is satisfied by both pgx.Row and *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows abstracts pgx.Rows and *sql.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Result represents the result of an Exec operation.
type Result interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}

// Executor runs queries on a connection or inside a transaction. Queries use
// ? placeholders; the postgres driver rebinds them.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Transaction wraps Executor with Commit/Rollback capabilities.
type Transaction interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connection is a pooled database handle.
type Connection interface {
	Executor
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
	Ping(ctx context.Context) error
	Driver() Driver
}

// WrapSQLRows adapts *sql.Rows. sql.Result already satisfies Result.
func WrapSQLRows(r *sql.Rows) Rows {
	return r
}

// ExecAffected runs an Exec and reports ErrNoRows when nothing changed.
func ExecAffected(ctx context.Context, exec Executor, query string, args ...any) error {
	res, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}
