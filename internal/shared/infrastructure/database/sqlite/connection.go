// Package sqlite registers the pure-Go SQLite driver used for local mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	_ "modernc.org/sqlite"
)

func init() {
	database.RegisterDriver(database.DriverSQLite, Open)
}

// pragmas enable WAL, enforce foreign keys and wait on locks instead of
// failing immediately.
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

// Connection adapts *sql.DB to database.Connection.
type Connection struct {
	db *sql.DB
}

// Open opens the SQLite file at cfg.SQLitePath, creating its directory.
// database.MemoryPath opens a private in-memory database.
func Open(ctx context.Context, cfg database.Config) (database.Connection, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = strings.TrimPrefix(cfg.URL, "sqlite://")
	}
	if path == "" {
		path = database.DefaultSQLitePath()
	}

	if path != database.MemoryPath {
		if err := database.EnsureDirectory(path); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &Connection{db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		if path == database.MemoryPath && strings.HasPrefix(p, "journal_mode") {
			continue
		}
		params = append(params, "_pragma="+p)
	}
	return path + sep + strings.Join(params, "&")
}

// DB exposes the underlying handle.
func (c *Connection) DB() *sql.DB { return c.db }

func (c *Connection) Driver() database.Driver { return database.DriverSQLite }

func (c *Connection) Close() error { return c.db.Close() }

func (c *Connection) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Connection) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx}, nil
}

func (c *Connection) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Connection) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return database.WrapSQLRows(rows), nil
}

// Transaction adapts *sql.Tx to database.Transaction.
type Transaction struct {
	tx *sql.Tx
}

func (t *Transaction) Commit(context.Context) error { return t.tx.Commit() }

func (t *Transaction) Rollback(context.Context) error { return t.tx.Rollback() }

func (t *Transaction) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Transaction) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *Transaction) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return database.WrapSQLRows(rows), nil
}
