package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Driver identifies a database backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string {
	return string(d)
}

// IsValid returns true if the driver is a known type.
func (d Driver) IsValid() bool {
	switch d {
	case DriverPostgres, DriverSQLite:
		return true
	default:
		return false
	}
}

// DetectDriver infers the driver from a connection string. An empty string
// selects SQLite so the CLI works without any setup.
func DetectDriver(url string) Driver {
	switch {
	case url == "":
		return DriverSQLite
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"),
		strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"), strings.HasSuffix(url, ".sqlite3"),
		url == MemoryPath:
		return DriverSQLite
	default:
		return DriverPostgres
	}
}

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// Config holds database configuration.
type Config struct {
	// Driver is detected from URL when empty or "auto".
	Driver Driver

	// URL is the PostgreSQL connection string.
	URL string

	// SQLitePath defaults to ~/.cadence/data.db.
	SQLitePath string

	// MaxConns caps the PostgreSQL pool.
	MaxConns int
}

// Factory opens a connection for one driver.
type Factory func(ctx context.Context, cfg Config) (Connection, error)

var factories = map[Driver]Factory{}

// RegisterDriver makes a driver available to NewConnection. Driver packages
// call it from init, so importing them for side effects is enough.
func RegisterDriver(driver Driver, factory Factory) {
	factories[driver] = factory
}

// NewConnection opens a connection for the configured driver.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" || driver == "auto" {
		driver = DetectDriver(cfg.URL)
	}
	factory, ok := factories[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return factory(ctx, cfg)
}

// DefaultSQLitePath returns the default SQLite database path.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".cadence", "data.db")
}

// EnsureDirectory creates the parent directory of path.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o750)
}

// Rebind rewrites ? placeholders into the $n form PostgreSQL expects.
// Queries are written once with ? and rebound per connection.
func Rebind(driver Driver, query string) string {
	if driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
