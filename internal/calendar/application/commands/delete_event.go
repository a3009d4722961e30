package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	sharedApplication "github.com/felixgeelhaar/cadence/internal/shared/application"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// DeleteEventCommand removes an event, or some of a series' occurrences.
type DeleteEventCommand struct {
	UserID         uuid.UUID
	EventID        string
	Scope          domain.EditScope
	OccurrenceDate *time.Time
}

// DeleteEventResult describes what a delete changed.
type DeleteEventResult struct {
	Scope    domain.EditScope
	Deleted  []string
	Updated  []string
	Degraded bool
}

// DeleteEventHandler handles the DeleteEventCommand.
type DeleteEventHandler struct {
	eventRepo  domain.EventRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	locks      *sharedApplication.KeyedMutex
	logger     *slog.Logger
}

// NewDeleteEventHandler creates a new DeleteEventHandler.
func NewDeleteEventHandler(
	eventRepo domain.EventRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	locks *sharedApplication.KeyedMutex,
	logger *slog.Logger,
) *DeleteEventHandler {
	if locks == nil {
		locks = sharedApplication.NewKeyedMutex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteEventHandler{
		eventRepo:  eventRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		locks:      locks,
		logger:     logger,
	}
}

// Handle executes the DeleteEventCommand.
func (h *DeleteEventHandler) Handle(ctx context.Context, cmd DeleteEventCommand) (*DeleteEventResult, error) {
	if cmd.Scope == "" {
		cmd.Scope = domain.ScopeAll
	}
	id, date, err := resolveTarget(cmd.EventID, cmd.OccurrenceDate)
	if err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(id)
	defer unlock()

	return sharedApplication.WithUnitOfWorkResult(ctx, h.uow, func(txCtx context.Context) (*DeleteEventResult, error) {
		ev, err := loadOwned(txCtx, h.eventRepo, cmd.UserID, id)
		if err != nil {
			return nil, err
		}
		if ev.IsSeries() && cmd.Scope != domain.ScopeAll && date == nil {
			return nil, fmt.Errorf("%w: scope %s needs an occurrence date", domain.ErrInvalidOccurrence, cmd.Scope)
		}

		var day time.Time
		if date != nil {
			day = *date
		}
		set := domain.DeleteSeries(*ev, cmd.Scope, day)
		if set.IsEmpty() {
			return nil, fmt.Errorf("%w: %s has no occurrence on %s", domain.ErrInvalidOccurrence, id, domain.DateKey(day))
		}
		// An occurrence edited before lives on as a detached child.
		if cmd.Scope == domain.ScopeSingle {
			if childID, edited := domain.DetachedID(*ev, day); edited {
				child, err := findDerived(txCtx, h.eventRepo, cmd.UserID, childID)
				if err != nil {
					return nil, err
				}
				if child != nil {
					set.Mutations = append(set.Mutations, domain.DeleteOf(child.ID))
				}
			}
		}
		if set.Degraded {
			h.logger.WarnContext(txCtx, "series scope used on a single event",
				"event_id", id, "scope", string(cmd.Scope))
		}
		if err := applyMutations(txCtx, h.eventRepo, h.outboxRepo, cmd.UserID, set); err != nil {
			return nil, err
		}

		result := &DeleteEventResult{Scope: set.Scope, Degraded: set.Degraded}
		for _, m := range set.Mutations {
			if m.Kind == domain.MutationDelete {
				result.Deleted = append(result.Deleted, m.EventID)
			} else {
				result.Updated = append(result.Updated, m.EventID)
			}
		}
		return result, nil
	})
}
