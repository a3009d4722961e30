// Package postgres registers the pgx-backed PostgreSQL driver.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func init() {
	database.RegisterDriver(database.DriverPostgres, Open)
}

var errLastInsertID = errors.New("postgres: LastInsertId unsupported, use RETURNING")

// Connection adapts a pgx pool to database.Connection.
type Connection struct {
	pool *pgxpool.Pool
}

// Open creates a pool for cfg.URL.
func Open(ctx context.Context, cfg database.Config) (database.Connection, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres: DATABASE_URL is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 && cfg.MaxConns <= math.MaxInt32 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &Connection{pool: pool}, nil
}

// Pool exposes the underlying pool.
func (c *Connection) Pool() *pgxpool.Pool {
	return c.pool
}

func (c *Connection) Driver() database.Driver {
	return database.DriverPostgres
}

func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Connection) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx}, nil
}

func (c *Connection) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	tag, err := c.pool.Exec(ctx, bind(query), args...)
	if err != nil {
		return nil, err
	}
	return &pgxResult{tag: tag}, nil
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return c.pool.QueryRow(ctx, bind(query), args...)
}

func (c *Connection) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := c.pool.Query(ctx, bind(query), args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// Transaction adapts pgx.Tx to database.Transaction.
type Transaction struct {
	tx pgx.Tx
}

func (t *Transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func (t *Transaction) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	tag, err := t.tx.Exec(ctx, bind(query), args...)
	if err != nil {
		return nil, err
	}
	return &pgxResult{tag: tag}, nil
}

func (t *Transaction) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return t.tx.QueryRow(ctx, bind(query), args...)
}

func (t *Transaction) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := t.tx.Query(ctx, bind(query), args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// pgxResult exposes a command tag as database.Result.
type pgxResult struct {
	tag pgconn.CommandTag
}

func (r *pgxResult) RowsAffected() (int64, error) {
	return r.tag.RowsAffected(), nil
}

func (r *pgxResult) LastInsertId() (int64, error) {
	return 0, errLastInsertID
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}

func (r *pgxRows) Err() error {
	return r.rows.Err()
}

// bind lets repositories share ?-style queries with SQLite.
func bind(query string) string {
	return database.Rebind(database.DriverPostgres, query)
}
