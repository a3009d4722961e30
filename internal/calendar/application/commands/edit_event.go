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

// EditEventCommand edits an event, or some of a series' occurrences.
type EditEventCommand struct {
	UserID uuid.UUID
	// EventID is a stored id or an occurrence id. An occurrence id implies
	// its date when OccurrenceDate is nil.
	EventID        string
	Scope          domain.EditScope
	OccurrenceDate *time.Time
	Update         domain.EventUpdate
}

// EditEventResult describes what an edit changed.
type EditEventResult struct {
	Scope domain.EditScope
	// EventIDs lists the stored events that were created or updated.
	EventIDs []string
	// Degraded is set when a series scope was used on a single event.
	Degraded bool
}

// EditEventHandler handles the EditEventCommand.
type EditEventHandler struct {
	eventRepo  domain.EventRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	locks      *sharedApplication.KeyedMutex
	logger     *slog.Logger
}

// NewEditEventHandler creates a new EditEventHandler. Handlers sharing locks
// never apply two mutation sets to the same series concurrently.
func NewEditEventHandler(
	eventRepo domain.EventRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	locks *sharedApplication.KeyedMutex,
	logger *slog.Logger,
) *EditEventHandler {
	if locks == nil {
		locks = sharedApplication.NewKeyedMutex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EditEventHandler{
		eventRepo:  eventRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		locks:      locks,
		logger:     logger,
	}
}

// Handle executes the EditEventCommand.
func (h *EditEventHandler) Handle(ctx context.Context, cmd EditEventCommand) (*EditEventResult, error) {
	if cmd.Scope == "" {
		cmd.Scope = domain.ScopeAll
	}
	if cmd.Update.RecurrenceRule != nil {
		if err := cmd.Update.RecurrenceRule.Validate(); err != nil {
			return nil, err
		}
	}
	id, date, err := resolveTarget(cmd.EventID, cmd.OccurrenceDate)
	if err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(id)
	defer unlock()

	return sharedApplication.WithUnitOfWorkResult(ctx, h.uow, func(txCtx context.Context) (*EditEventResult, error) {
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
		set, err := h.mutationsFor(txCtx, *ev, cmd, day)
		if err != nil {
			return nil, err
		}
		if set.IsEmpty() {
			return nil, fmt.Errorf("%w: %s has no occurrence on %s", domain.ErrInvalidOccurrence, id, domain.DateKey(day))
		}
		if set.Degraded {
			h.logger.WarnContext(txCtx, "series scope used on a single event",
				"event_id", id, "scope", string(cmd.Scope))
		}
		if err := applyMutations(txCtx, h.eventRepo, h.outboxRepo, cmd.UserID, set); err != nil {
			return nil, err
		}

		result := &EditEventResult{Scope: set.Scope, Degraded: set.Degraded}
		for _, m := range set.Mutations {
			result.EventIDs = append(result.EventIDs, m.EventID)
		}
		return result, nil
	})
}

// mutationsFor builds on records an earlier edit of the same occurrence
// stored: the child of a single edit or the tail of a split.
func (h *EditEventHandler) mutationsFor(ctx context.Context, ev domain.Event, cmd EditEventCommand, day time.Time) (domain.MutationSet, error) {
	switch cmd.Scope {
	case domain.ScopeSingle:
		if id, edited := domain.DetachedID(ev, day); edited {
			child, err := findDerived(ctx, h.eventRepo, cmd.UserID, id)
			if err != nil {
				return domain.MutationSet{}, err
			}
			if child != nil {
				return domain.EditDetached(*child, cmd.Update), nil
			}
		}
	case domain.ScopeThisAndFuture:
		if id, split := domain.SplitTailID(ev, day); split {
			tail, err := findDerived(ctx, h.eventRepo, cmd.UserID, id)
			if err != nil {
				return domain.MutationSet{}, err
			}
			if tail != nil {
				return domain.ResumeSplit(ev, *tail, cmd.Update), nil
			}
		}
	}
	return domain.EditSeries(ev, cmd.Update, cmd.Scope, day), nil
}
