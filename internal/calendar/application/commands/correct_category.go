package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// ErrEmptyCategory is returned when a correction names no category.
var ErrEmptyCategory = errors.New("category cannot be empty")

// CorrectCategoryCommand re-labels an event and remembers the choice for
// future events with the same title.
type CorrectCategoryCommand struct {
	UserID   uuid.UUID
	EventID  string
	Category string
}

// CorrectCategoryHandler handles the CorrectCategoryCommand.
type CorrectCategoryHandler struct {
	eventRepo   domain.EventRepository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	corrections domain.CorrectionStore
}

// NewCorrectCategoryHandler creates a new CorrectCategoryHandler.
func NewCorrectCategoryHandler(
	eventRepo domain.EventRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	corrections domain.CorrectionStore,
) *CorrectCategoryHandler {
	return &CorrectCategoryHandler{
		eventRepo:   eventRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		corrections: corrections,
	}
}

// Handle executes the CorrectCategoryCommand.
func (h *CorrectCategoryHandler) Handle(ctx context.Context, cmd CorrectCategoryCommand) error {
	category := strings.ToLower(strings.TrimSpace(cmd.Category))
	if category == "" {
		return ErrEmptyCategory
	}
	id, _, err := resolveTarget(cmd.EventID, nil)
	if err != nil {
		return err
	}

	var title string
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		ev, err := loadOwned(txCtx, h.eventRepo, cmd.UserID, id)
		if err != nil {
			return err
		}
		title = ev.Title
		if ev.Category == category {
			return nil
		}
		updated := ev.Clone()
		updated.Category = category
		set := domain.MutationSet{Scope: domain.ScopeAll, Mutations: []domain.Mutation{domain.UpdateOf(updated)}}
		return applyMutations(txCtx, h.eventRepo, h.outboxRepo, cmd.UserID, set)
	})
	if err != nil {
		return err
	}

	if err := h.corrections.Save(ctx, cmd.UserID, domain.NormalizeTitle(title), category); err != nil {
		return fmt.Errorf("save category correction: %w", err)
	}
	return nil
}
