package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cadence.db")

	conn, err := database.NewConnection(ctx, database.Config{SQLitePath: path})
	require.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, conn.Ping(ctx))
	assert.Equal(t, database.DriverSQLite, conn.Driver())
	assert.FileExists(t, path)
}

func TestConnection_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, database.Config{SQLitePath: database.MemoryPath})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(ctx, `CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)

	res, err := conn.Exec(ctx, `INSERT INTO notes (id, body) VALUES (?, ?), (?, ?)`, "1", "one", "2", "two")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var body string
	require.NoError(t, conn.QueryRow(ctx, `SELECT body FROM notes WHERE id = ?`, "2").Scan(&body))
	assert.Equal(t, "two", body)

	rows, err := conn.Query(ctx, `SELECT id FROM notes ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"1", "2"}, ids)

	err = conn.QueryRow(ctx, `SELECT body FROM notes WHERE id = ?`, "missing").Scan(&body)
	assert.True(t, database.IsNoRows(err))
}

func TestUnitOfWork_Rollback(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, database.Config{SQLitePath: database.MemoryPath})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(ctx, `CREATE TABLE notes (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	uow := database.NewUnitOfWork(conn)
	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	_, err = database.ExecutorFromContext(txCtx, conn).Exec(txCtx, `INSERT INTO notes (id) VALUES (?)`, "a")
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(txCtx))

	var count int
	require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count))
	assert.Zero(t, count)
}
