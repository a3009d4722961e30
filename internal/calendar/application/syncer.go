package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/google/uuid"
)

// SyncResult describes the outcome of a push.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// RemoteCalendar is an external calendar events are pushed to and pulled from.
type RemoteCalendar interface {
	Push(ctx context.Context, events []domain.Event) (*SyncResult, error)
	Pull(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Event, error)
}

// SyncConfig bounds the pull window around now.
type SyncConfig struct {
	LookBackDays  int
	LookAheadDays int
}

// DefaultSyncConfig returns the sync defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{LookBackDays: 7, LookAheadDays: 90}
}

// SyncReport is the outcome of one sync run.
type SyncReport struct {
	Pushed   SyncResult                  `json:"pushed"`
	Pulled   int                         `json:"pulled"`
	Imported commands.ImportEventsResult `json:"imported"`
}

// SyncService pushes a user's stored events to a remote calendar and
// imports the remote events it did not write.
type SyncService struct {
	eventRepo domain.EventRepository
	remote    RemoteCalendar
	importer  *commands.ImportEventsHandler
	config    SyncConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	eventRepo domain.EventRepository,
	remote RemoteCalendar,
	importer *commands.ImportEventsHandler,
	config SyncConfig,
	logger *slog.Logger,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		eventRepo: eventRepo,
		remote:    remote,
		importer:  importer,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Sync runs one push then one pull for userID. A failed push does not stop
// the pull; its error is returned after the pull completes.
func (s *SyncService) Sync(ctx context.Context, userID uuid.UUID) (*SyncReport, error) {
	events, err := s.eventRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	report := &SyncReport{}
	pushed, pushErr := s.remote.Push(ctx, events)
	if pushed != nil {
		report.Pushed = *pushed
	}
	if pushErr != nil {
		s.logger.WarnContext(ctx, "calendar push failed", "error", pushErr)
	}

	now := s.now()
	start := now.AddDate(0, 0, -s.config.LookBackDays)
	end := now.AddDate(0, 0, s.config.LookAheadDays)
	remote, err := s.remote.Pull(ctx, userID, start, end)
	if err != nil {
		return report, fmt.Errorf("pull events: %w", err)
	}
	report.Pulled = len(remote)

	imported, err := s.importer.Handle(ctx, commands.ImportEventsCommand{UserID: userID, Events: remote})
	if err != nil {
		return report, fmt.Errorf("import events: %w", err)
	}
	report.Imported = *imported

	if pushErr != nil {
		return report, fmt.Errorf("push events: %w", pushErr)
	}
	return report, nil
}
