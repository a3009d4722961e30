package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/application"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DefaultSyncSchedule runs a sync every 15 minutes.
const DefaultSyncSchedule = "*/15 * * * *"

// ErrInvalidSchedule is returned for a cron expression that does not parse.
var ErrInvalidSchedule = errors.New("invalid sync schedule")

// Syncer runs one push and pull for a user.
type Syncer interface {
	Sync(ctx context.Context, userID uuid.UUID) (*application.SyncReport, error)
}

// CalendarSyncWorkerConfig configures the sync worker.
type CalendarSyncWorkerConfig struct {
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@every 10m".
	Schedule   string
	Location   *time.Location
	UserIDs    []uuid.UUID
	RunOnStart bool
}

// DefaultSyncWorkerConfig returns the default configuration.
func DefaultSyncWorkerConfig() CalendarSyncWorkerConfig {
	return CalendarSyncWorkerConfig{
		Schedule:   DefaultSyncSchedule,
		Location:   time.Local,
		RunOnStart: true,
	}
}

// CalendarSyncWorker syncs every configured user with the remote calendar
// on a cron schedule.
type CalendarSyncWorker struct {
	syncer   Syncer
	config   CalendarSyncWorkerConfig
	schedule cron.Schedule
	logger   *slog.Logger
	metrics  observability.Metrics
	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCalendarSyncWorker creates a new calendar sync worker. The schedule is
// parsed up front so a bad expression fails at startup.
func NewCalendarSyncWorker(
	syncer Syncer,
	config CalendarSyncWorkerConfig,
	metrics observability.Metrics,
	logger *slog.Logger,
) (*CalendarSyncWorker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if config.Schedule == "" {
		config.Schedule = DefaultSyncSchedule
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	schedule, err := cron.ParseStandard(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, config.Schedule, err)
	}
	return &CalendarSyncWorker{
		syncer:   syncer,
		config:   config,
		schedule: schedule,
		logger:   logger,
		metrics:  metrics,
		stopCh:   make(chan struct{}),
	}, nil
}

// Run starts the worker and blocks until context is cancelled or Stop() is called.
func (w *CalendarSyncWorker) Run(ctx context.Context) error {
	if w.syncer == nil {
		w.logger.Warn("calendar syncer not configured, worker will not start")
		return nil
	}
	if len(w.config.UserIDs) == 0 {
		w.logger.Warn("no users to sync, worker will not start")
		return nil
	}

	scheduler := cron.New(
		cron.WithLocation(w.config.Location),
		cron.WithLogger(cronLogger{w.logger}),
		cron.WithChain(cron.Recover(cronLogger{w.logger}), cron.SkipIfStillRunning(cronLogger{w.logger})),
	)
	scheduler.Schedule(w.schedule, cron.FuncJob(func() { w.runSyncCycle(ctx) }))

	w.running.Store(true)
	defer w.running.Store(false)
	w.logger.Info("calendar sync worker started",
		"schedule", w.config.Schedule,
		"users", len(w.config.UserIDs),
	)

	if w.config.RunOnStart {
		w.runSyncCycle(ctx)
	}
	scheduler.Start()

	var err error
	select {
	case <-ctx.Done():
		w.logger.Info("calendar sync worker stopped (context cancelled)")
		err = ctx.Err()
	case <-w.stopCh:
		w.logger.Info("calendar sync worker stopped (stop signal)")
	}

	// Wait for a cycle in flight.
	<-scheduler.Stop().Done()
	return err
}

// Stop signals the worker to stop gracefully. It is safe to call more than once.
func (w *CalendarSyncWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// IsRunning returns true if the worker is currently running.
func (w *CalendarSyncWorker) IsRunning() bool {
	return w.running.Load()
}

// Next returns the next scheduled run after t.
func (w *CalendarSyncWorker) Next(t time.Time) time.Time {
	return w.schedule.Next(t.In(w.config.Location))
}

// ForceSync runs one sync for userID outside the schedule.
func (w *CalendarSyncWorker) ForceSync(ctx context.Context, userID uuid.UUID) (*application.SyncReport, error) {
	if w.syncer == nil {
		return nil, errors.New("calendar syncer not configured")
	}
	return w.syncUser(ctx, userID)
}

// runSyncCycle syncs each configured user. A failing user does not stop the cycle.
func (w *CalendarSyncWorker) runSyncCycle(ctx context.Context) {
	w.logger.Debug("starting sync cycle")
	for _, userID := range w.config.UserIDs {
		if ctx.Err() != nil {
			return
		}
		_, _ = w.syncUser(ctx, userID)
	}
	w.logger.Debug("sync cycle completed")
}

func (w *CalendarSyncWorker) syncUser(ctx context.Context, userID uuid.UUID) (*application.SyncReport, error) {
	ctx = observability.WithUserID(ctx, userID.String())
	timer := observability.StartTimer("calendar.sync").WithMetrics(w.metrics)

	report, err := w.syncer.Sync(ctx, userID)
	timer.StopWithError(ctx, err)
	if err != nil {
		w.logger.ErrorContext(ctx, "calendar sync failed", "error", err)
		return report, err
	}

	w.logger.InfoContext(ctx, "calendar sync completed",
		"pushed_created", report.Pushed.Created,
		"pushed_updated", report.Pushed.Updated,
		"pushed_deleted", report.Pushed.Deleted,
		"pulled", report.Pulled,
		"imported_created", report.Imported.Created,
		"imported_updated", report.Imported.Updated,
	)
	return report, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
