package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	calendarApp "github.com/felixgeelhaar/cadence/internal/calendar/application"
	calendarCommands "github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	calendarQueries "github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/calendar/infrastructure/caldav"
	scheduleCommands "github.com/felixgeelhaar/cadence/internal/scheduling/application/commands"
	scheduleQueries "github.com/felixgeelhaar/cadence/internal/scheduling/application/queries"
	scheduleSubs "github.com/felixgeelhaar/cadence/internal/scheduling/application/subscribers"
	schedulingDomain "github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/cadence/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// UserID is the configured user every CLI and MCP call acts for.
	UserID uuid.UUID
	// Location is the profile timezone used to read wall-clock input.
	Location *time.Location

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Repositories and stores
	EventRepo       calendarDomain.EventRepository
	OutboxRepo      outbox.Repository
	UnitOfWork      sharedApplication.UnitOfWork
	CorrectionStore calendarDomain.CorrectionStore
	DismissalStore  schedulingDomain.DismissalStore
	PatternCache    schedulingDomain.PatternCache

	// Publishers. InProcessBus is set when no broker is configured.
	EventPublisher eventbus.Publisher
	InProcessBus   *eventbus.InProcessBus

	// Occurrence engine
	Expander    *calendarDomain.Expander
	SeriesLocks *sharedApplication.KeyedMutex

	// Calendar Command Handlers
	CreateEventHandler     *calendarCommands.CreateEventHandler
	EditEventHandler       *calendarCommands.EditEventHandler
	DeleteEventHandler     *calendarCommands.DeleteEventHandler
	CorrectCategoryHandler *calendarCommands.CorrectCategoryHandler
	ImportEventsHandler    *calendarCommands.ImportEventsHandler

	// Calendar Query Handlers
	ListOccurrencesHandler *calendarQueries.ListOccurrencesHandler
	GetEventHandler        *calendarQueries.GetEventHandler

	// Schedule Query Handlers
	GetPatternsHandler     *scheduleQueries.GetPatternsHandler
	DetectConflictsHandler *scheduleQueries.DetectConflictsHandler
	FindSlotsHandler       *scheduleQueries.FindSlotsHandler
	GetSuggestionsHandler  *scheduleQueries.GetSuggestionsHandler

	// Schedule Command Handlers
	DismissSuggestionHandler *scheduleCommands.DismissSuggestionHandler

	// Event Subscribers
	PatternCacheSubscriber *scheduleSubs.PatternCacheSubscriber

	// Calendar Sync. Nil unless a CalDAV server is configured.
	CalDAVSyncer *caldav.Syncer
	SyncService  *calendarApp.SyncService

	// Outbox Processor
	OutboxProcessor *outbox.Processor
}

// NewContainer creates and wires all dependencies. PostgreSQL is used when
// DATABASE_URL is set, SQLite otherwise. Redis and RabbitMQ are optional in
// development.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	userID, err := uuid.Parse(cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", cfg.UserID, err)
	}
	loc, err := cfg.Profile.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid profile timezone: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Metrics:  observability.NewInMemoryMetrics(),
		Health:   observability.NewHealthRegistry(),
		UserID:   userID,
		Location: loc,
	}

	// Connect to the database and bring the schema up to date
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to database", "driver", c.DBDriver)

	if err := migrations.Run(ctx, conn, logger); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	c.Health.Register("database", observability.PingChecker(conn.Ping, observability.HealthStatusUnhealthy))

	// Connect to Redis (optional in development)
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				c.Close()
				return nil, err
			}
			logger.Warn("Redis not available, stores will use in-memory fallback", "error", err)
		} else {
			c.RedisClient = client
			c.Health.Register("redis", observability.PingChecker(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}, observability.HealthStatusDegraded))
			logger.Info("connected to Redis")
		}
	}

	// Create repositories
	factory := NewRepositoryFactory(conn, c.RedisClient)
	if c.EventRepo, err = factory.EventRepository(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create event repository: %w", err)
	}
	if c.OutboxRepo, err = factory.OutboxRepository(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create outbox repository: %w", err)
	}
	c.UnitOfWork = factory.UnitOfWork()
	c.CorrectionStore = factory.CorrectionStore()
	c.DismissalStore = factory.DismissalStore()
	c.PatternCache = factory.PatternCache()

	// Create occurrence engine
	c.Expander = calendarDomain.NewExpander(cfg.MaxOccurrences, logger)
	c.SeriesLocks = sharedApplication.NewKeyedMutex()

	// Create calendar command handlers
	c.CreateEventHandler = calendarCommands.NewCreateEventHandler(c.EventRepo, c.OutboxRepo, c.UnitOfWork, c.CorrectionStore, logger)
	c.EditEventHandler = calendarCommands.NewEditEventHandler(c.EventRepo, c.OutboxRepo, c.UnitOfWork, c.SeriesLocks, logger)
	c.DeleteEventHandler = calendarCommands.NewDeleteEventHandler(c.EventRepo, c.OutboxRepo, c.UnitOfWork, c.SeriesLocks, logger)
	c.CorrectCategoryHandler = calendarCommands.NewCorrectCategoryHandler(c.EventRepo, c.OutboxRepo, c.UnitOfWork, c.CorrectionStore)
	c.ImportEventsHandler = calendarCommands.NewImportEventsHandler(c.EventRepo, c.OutboxRepo, c.UnitOfWork, c.CorrectionStore, logger)

	// Create calendar query handlers
	c.ListOccurrencesHandler = calendarQueries.NewListOccurrencesHandler(c.EventRepo, c.Expander, c.Metrics, logger)
	c.GetEventHandler = calendarQueries.NewGetEventHandler(c.EventRepo, c.Expander)

	// Create schedule handlers
	c.GetPatternsHandler = scheduleQueries.NewGetPatternsHandler(c.ListOccurrencesHandler, c.PatternCache, ProfilePatterns(cfg.Profile), logger)
	c.DetectConflictsHandler = scheduleQueries.NewDetectConflictsHandler(c.ListOccurrencesHandler, c.Metrics)
	c.FindSlotsHandler = scheduleQueries.NewFindSlotsHandler(c.ListOccurrencesHandler, c.GetPatternsHandler, cfg.Profile.SlotDuration, c.Metrics, logger)
	c.GetSuggestionsHandler = scheduleQueries.NewGetSuggestionsHandler(c.ListOccurrencesHandler, c.GetPatternsHandler, c.DismissalStore, logger)
	c.DismissSuggestionHandler = scheduleCommands.NewDismissSuggestionHandler(c.DismissalStore)

	c.PatternCacheSubscriber = scheduleSubs.NewPatternCacheSubscriber(c.PatternCache, logger)

	// Create event publisher
	if err := c.initPublisher(); err != nil {
		c.Close()
		return nil, err
	}

	// Create calendar sync if a CalDAV server is configured
	if cfg.CalDAVEnabled() {
		c.CalDAVSyncer = caldav.NewSyncer(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, logger).
			WithMetrics(c.Metrics)
		c.SyncService = calendarApp.NewSyncService(
			c.EventRepo,
			c.CalDAVSyncer,
			c.ImportEventsHandler,
			calendarApp.DefaultSyncConfig(),
			logger,
		)
		logger.Info("calendar sync configured", "url", cfg.CalDAVURL)
	}

	// Create outbox processor
	processorConfig := outbox.DefaultProcessorConfig()
	if cfg.OutboxPollInterval > 0 {
		processorConfig.PollInterval = cfg.OutboxPollInterval
	}
	if cfg.OutboxBatchSize > 0 {
		processorConfig.BatchSize = cfg.OutboxBatchSize
	}
	if cfg.OutboxMaxRetries > 0 {
		processorConfig.MaxRetries = cfg.OutboxMaxRetries
	}
	processorConfig.Retention = cfg.OutboxRetention
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, logger, c.Metrics)

	return c, nil
}

// NewLocalContainer creates a container for local mode with SQLite.
// This provides zero-config operation without requiring PostgreSQL, Redis, or RabbitMQ.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	local := *cfg
	local.DatabaseDriver = database.DriverSQLite.String()
	local.DatabaseURL = ""
	local.RedisURL = ""
	local.RabbitMQURL = ""
	return NewContainer(ctx, &local, logger)
}

// initPublisher connects to RabbitMQ, or falls back to the in-process bus
// when no broker is configured or, in development, reachable.
func (c *Container) initPublisher() error {
	if c.Config.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err == nil {
			c.EventPublisher = publisher
			return nil
		}
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, using in-process event bus", "error", err)
	}

	c.InProcessBus = eventbus.NewInProcessBus(c.Logger)
	c.InProcessBus.RegisterConsumer(c.PatternCacheSubscriber)
	c.EventPublisher = c.InProcessBus
	return nil
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}

// ProfilePatterns seeds pattern analysis from the scheduling profile.
func ProfilePatterns(p config.Profile) schedulingDomain.UserPatterns {
	patterns := schedulingDomain.DefaultPatterns()
	if p.WorkEndHour > p.WorkStartHour {
		patterns.WorkStartHour = p.WorkStartHour
		patterns.WorkEndHour = p.WorkEndHour
	}
	if len(p.ProductiveHours) > 0 {
		patterns.ProductiveHours = append([]int(nil), p.ProductiveHours...)
	}
	if p.SlotDuration > 0 {
		patterns.AverageDurationMinutes = p.SlotDuration
	}
	return patterns
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
