package app

import (
	"fmt"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	calendarPersistence "github.com/felixgeelhaar/cadence/internal/calendar/infrastructure/persistence"
	schedulingDomain "github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/infrastructure/cache"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/redis/go-redis/v9"
)

// RepositoryFactory creates repositories based on the database driver, and
// stores based on whether Redis is available.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
	redis  *redis.Client
}

// NewRepositoryFactory creates a new repository factory. redisClient may be
// nil, in which case the stores are kept in memory.
func NewRepositoryFactory(conn database.Connection, redisClient *redis.Client) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
		redis:  redisClient,
	}
}

// EventRepository creates an event repository for the configured driver.
func (f *RepositoryFactory) EventRepository() (calendarDomain.EventRepository, error) {
	if err := f.checkDriver(); err != nil {
		return nil, err
	}
	return calendarPersistence.NewSQLEventRepository(f.conn), nil
}

// OutboxRepository creates an outbox repository for the configured driver.
func (f *RepositoryFactory) OutboxRepository() (outbox.Repository, error) {
	if err := f.checkDriver(); err != nil {
		return nil, err
	}
	return outbox.NewSQLRepository(f.conn), nil
}

// UnitOfWork creates a unit of work over the connection.
func (f *RepositoryFactory) UnitOfWork() *database.UnitOfWork {
	return database.NewUnitOfWork(f.conn)
}

// CorrectionStore creates the category correction store.
func (f *RepositoryFactory) CorrectionStore() calendarDomain.CorrectionStore {
	if f.redis != nil {
		return cache.NewRedisCorrectionStore(f.redis)
	}
	return cache.NewMemoryCorrectionStore()
}

// DismissalStore creates the dismissed suggestion store.
func (f *RepositoryFactory) DismissalStore() schedulingDomain.DismissalStore {
	if f.redis != nil {
		return cache.NewRedisDismissalStore(f.redis)
	}
	return cache.NewMemoryDismissalStore()
}

// PatternCache creates the pattern cache.
func (f *RepositoryFactory) PatternCache() schedulingDomain.PatternCache {
	if f.redis != nil {
		return cache.NewRedisPatternCache(f.redis)
	}
	return cache.NewMemoryPatternCache()
}

func (f *RepositoryFactory) checkDriver() error {
	switch f.driver {
	case database.DriverPostgres, database.DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported driver: %s", f.driver)
	}
}
