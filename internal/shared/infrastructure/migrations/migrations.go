// Package migrations applies the embedded schema to a database connection.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL
)`

// Run applies every migration for the connection's driver that has not been
// recorded in schema_migrations, in file name order. Each file runs in its
// own transaction.
func Run(ctx context.Context, conn database.Connection, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	dir := conn.Driver().String()

	names, err := upFiles(dir)
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, createVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	for _, name := range names {
		version := strings.TrimSuffix(name, ".up.sql")
		if applied[version] {
			continue
		}
		body, err := files.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := apply(ctx, conn, version, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		logger.Info("applied migration", "version", version, "driver", dir)
	}
	return nil
}

func upFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for driver %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func appliedVersions(ctx context.Context, conn database.Connection) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func apply(ctx context.Context, conn database.Connection, version, body string) error {
	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range statements(body) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		version, database.FormatTime(time.Now())); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// statements splits a migration file on semicolons ending a line.
func statements(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ";\n") {
		stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
