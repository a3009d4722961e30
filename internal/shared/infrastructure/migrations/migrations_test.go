package migrations

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := sqlite.Open(ctx, database.Config{SQLitePath: database.MemoryPath})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Run(ctx, conn, nil))
	require.NoError(t, Run(ctx, conn, nil), "re-running must be a no-op")

	var versions int
	require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&versions))
	assert.Equal(t, 2, versions)

	for _, table := range []string{"events", "outbox"} {
		var name string
		err := conn.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestStatements(t *testing.T) {
	got := statements("CREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestUpFiles_MatchAcrossDrivers(t *testing.T) {
	lite, err := upFiles("sqlite")
	require.NoError(t, err)
	pg, err := upFiles("postgres")
	require.NoError(t, err)
	assert.Equal(t, lite, pg)
}
