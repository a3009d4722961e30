package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// ImportEventsCommand upserts events decoded from an external calendar.
type ImportEventsCommand struct {
	UserID uuid.UUID
	Events []domain.Event
}

// ImportEventsResult counts what an import did.
type ImportEventsResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportEventsHandler stores imported events keyed by their external id.
type ImportEventsHandler struct {
	eventRepo   domain.EventRepository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	corrections domain.CorrectionStore
	logger      *slog.Logger
}

// NewImportEventsHandler creates a new ImportEventsHandler.
func NewImportEventsHandler(
	eventRepo domain.EventRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	corrections domain.CorrectionStore,
	logger *slog.Logger,
) *ImportEventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportEventsHandler{
		eventRepo:   eventRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		corrections: corrections,
		logger:      logger,
	}
}

// Handle executes the ImportEventsCommand. Events that fail validation, and
// ids already owned by another user, are skipped. Everything else is applied
// in one unit of work.
func (h *ImportEventsHandler) Handle(ctx context.Context, cmd ImportEventsCommand) (*ImportEventsResult, error) {
	result := &ImportEventsResult{}
	if len(cmd.Events) == 0 {
		return result, nil
	}

	var corrections domain.CorrectionLookup
	if h.corrections != nil {
		loaded, err := h.corrections.Load(ctx, cmd.UserID)
		if err != nil {
			h.logger.WarnContext(ctx, "category corrections unavailable", "error", err)
		} else {
			corrections = loaded
		}
	}

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		set := domain.MutationSet{Scope: domain.ScopeAll}
		for _, ev := range cmd.Events {
			ev.UserID = cmd.UserID
			ev.OccurrenceDate = ""
			if err := ev.Validate(); err != nil {
				h.logger.WarnContext(ctx, "skipping invalid imported event", "event_id", ev.ID, "error", err)
				result.Skipped++
				continue
			}
			if ev.Category == "" {
				ev.Category = domain.Classify(ev.Title, corrections)
			}

			existing, err := h.eventRepo.FindByID(txCtx, ev.ID)
			switch {
			case errors.Is(err, domain.ErrEventNotFound) || (err == nil && existing == nil):
				set.Mutations = append(set.Mutations, domain.CreateOf(ev))
				result.Created++
			case err != nil:
				return err
			case existing.UserID != cmd.UserID:
				h.logger.WarnContext(ctx, "skipping imported event owned by another user", "event_id", ev.ID)
				result.Skipped++
			default:
				ev.CreatedAt = existing.CreatedAt
				set.Mutations = append(set.Mutations, domain.UpdateOf(ev))
				result.Updated++
			}
		}
		if set.IsEmpty() {
			return nil
		}
		return applyMutations(txCtx, h.eventRepo, h.outboxRepo, cmd.UserID, set)
	})
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "events imported",
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)
	return result, nil
}
