package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CreateEventCommand contains the data needed to create an event or series.
type CreateEventCommand struct {
	UserID      uuid.UUID
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	IsAllDay    bool
	Color       string
	// Category is inferred from the title when empty.
	Category   string
	Recurrence *domain.RecurrenceRule
}

// CreateEventResult contains the result of creating an event.
type CreateEventResult struct {
	EventID  string
	Category string
}

// CreateEventHandler handles the CreateEventCommand.
type CreateEventHandler struct {
	eventRepo   domain.EventRepository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	corrections domain.CorrectionStore
	logger      *slog.Logger
}

// NewCreateEventHandler creates a new CreateEventHandler. corrections may be
// nil, in which case only the keyword rules classify titles.
func NewCreateEventHandler(
	eventRepo domain.EventRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	corrections domain.CorrectionStore,
	logger *slog.Logger,
) *CreateEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateEventHandler{
		eventRepo:   eventRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		corrections: corrections,
		logger:      logger,
	}
}

// Handle executes the CreateEventCommand.
func (h *CreateEventHandler) Handle(ctx context.Context, cmd CreateEventCommand) (*CreateEventResult, error) {
	ev, err := domain.NewEvent(cmd.UserID, cmd.Title, cmd.StartsAt, cmd.EndsAt)
	if err != nil {
		return nil, err
	}
	ev.Description = cmd.Description
	ev.Location = cmd.Location
	ev.IsAllDay = cmd.IsAllDay
	ev.Color = cmd.Color
	ev.Category = cmd.Category
	if cmd.Recurrence != nil {
		if err := cmd.Recurrence.Validate(); err != nil {
			return nil, err
		}
		ev.SetRecurrence(cmd.Recurrence)
	}
	if ev.Category == "" {
		ev.Category = domain.Classify(ev.Title, h.loadCorrections(ctx, cmd.UserID))
	}

	set := domain.MutationSet{Scope: domain.ScopeAll, Mutations: []domain.Mutation{domain.CreateOf(ev)}}
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		return applyMutations(txCtx, h.eventRepo, h.outboxRepo, cmd.UserID, set)
	})
	if err != nil {
		return nil, err
	}

	return &CreateEventResult{EventID: ev.ID, Category: ev.Category}, nil
}

func (h *CreateEventHandler) loadCorrections(ctx context.Context, userID uuid.UUID) domain.CorrectionLookup {
	if h.corrections == nil {
		return nil
	}
	corrections, err := h.corrections.Load(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "category corrections unavailable", "error", err)
		return nil
	}
	return corrections
}
