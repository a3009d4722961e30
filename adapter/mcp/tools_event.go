package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/mcp-go"
)

type eventCreateInput struct {
	Title       string            `json:"title" jsonschema:"required"`
	Description string            `json:"description,omitempty"`
	Location    string            `json:"location,omitempty"`
	Start       string            `json:"start" jsonschema:"required"`
	End         string            `json:"end" jsonschema:"required"`
	AllDay      bool              `json:"all_day,omitempty"`
	Color       string            `json:"color,omitempty"`
	Category    string            `json:"category,omitempty"`
	Recurrence  *domain.RuleInput `json:"recurrence,omitempty"`
	RRule       string            `json:"rrule,omitempty"`
}

type eventCreateOutput struct {
	EventID  string `json:"event_id"`
	Category string `json:"category"`
}

type eventListInput struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Category string `json:"category,omitempty"`
}

type eventListOutput struct {
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Count       int                `json:"count"`
	Occurrences []queries.EventDTO `json:"occurrences"`
}

type eventEditInput struct {
	EventID        string            `json:"event_id" jsonschema:"required"`
	Scope          string            `json:"scope,omitempty"`
	OccurrenceDate string            `json:"occurrence_date,omitempty"`
	Title          *string           `json:"title,omitempty"`
	Description    *string           `json:"description,omitempty"`
	Location       *string           `json:"location,omitempty"`
	Start          *string           `json:"start,omitempty"`
	End            *string           `json:"end,omitempty"`
	AllDay         *bool             `json:"all_day,omitempty"`
	Color          *string           `json:"color,omitempty"`
	Category       *string           `json:"category,omitempty"`
	Recurrence     *domain.RuleInput `json:"recurrence,omitempty"`
	RRule          string            `json:"rrule,omitempty"`
}

type eventDeleteInput struct {
	EventID        string `json:"event_id" jsonschema:"required"`
	Scope          string `json:"scope,omitempty"`
	OccurrenceDate string `json:"occurrence_date,omitempty"`
}

type eventMutationOutput struct {
	Scope    domain.EditScope `json:"scope"`
	Saved    []string         `json:"saved,omitempty"`
	Deleted  []string         `json:"deleted,omitempty"`
	Degraded bool             `json:"degraded,omitempty"`
}

func registerEventTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("event.create").
		Description("Create an event or a recurring series. Times are 'YYYY-MM-DD HH:MM' in the profile timezone or RFC 3339. " +
			"Recurrence is an object such as {\"frequency\":\"weekly\",\"daysOfWeek\":[1,3],\"count\":8} or an RRULE string.").
		Handler(func(ctx context.Context, input eventCreateInput) (*eventCreateOutput, error) {
			return createEvent(ctx, app, input)
		})

	srv.Tool("event.list_occurrences").
		Description("List events between two dates (inclusive, YYYY-MM-DD) with recurring series expanded. Defaults to the next 7 days.").
		Handler(func(ctx context.Context, input eventListInput) (*eventListOutput, error) {
			return listOccurrences(ctx, app, input, time.Now())
		})

	srv.Tool("event.edit").
		Description("Edit an event. For a series, scope is single, all or thisAndFuture and occurrence_date picks the occurrence; " +
			"an occurrence id (<series-id>@YYYY-MM-DD) implies its date. Only the fields given are changed.").
		Handler(func(ctx context.Context, input eventEditInput) (*eventMutationOutput, error) {
			return editEvent(ctx, app, input)
		})

	srv.Tool("event.delete").
		Description("Delete an event, one occurrence (scope single), the rest of a series (thisAndFuture) or a whole series (all).").
		Handler(func(ctx context.Context, input eventDeleteInput) (*eventMutationOutput, error) {
			return deleteEvent(ctx, app, input)
		})

	return nil
}

func createEvent(ctx context.Context, app *cli.App, input eventCreateInput) (*eventCreateOutput, error) {
	if app == nil || app.CreateEventHandler == nil {
		return nil, errors.New("event creation requires database connection")
	}
	loc := app.Loc()

	start, err := parseTimestamp(input.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	end, err := parseTimestamp(input.End, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %w", err)
	}
	rule, err := parseRecurrence(input.Recurrence, input.RRule, loc)
	if err != nil {
		return nil, err
	}

	result, err := app.CreateEventHandler.Handle(ctx, commands.CreateEventCommand{
		UserID:      app.CurrentUserID,
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		StartsAt:    start,
		EndsAt:      end,
		IsAllDay:    input.AllDay,
		Color:       input.Color,
		Category:    input.Category,
		Recurrence:  rule,
	})
	if err != nil {
		return nil, err
	}
	return &eventCreateOutput{EventID: result.EventID, Category: result.Category}, nil
}

func listOccurrences(ctx context.Context, app *cli.App, input eventListInput, now time.Time) (*eventListOutput, error) {
	if app == nil || app.ListOccurrencesHandler == nil {
		return nil, errors.New("event listing requires database connection")
	}

	start, end, err := parseWindow(input.Start, input.End, app.Loc(), now)
	if err != nil {
		return nil, err
	}
	occurrences, err := app.ListOccurrencesHandler.Handle(ctx, queries.ListOccurrencesQuery{
		UserID:   app.CurrentUserID,
		Start:    start,
		End:      end,
		Category: input.Category,
	})
	if err != nil {
		return nil, err
	}
	return &eventListOutput{Start: start, End: end, Count: len(occurrences), Occurrences: occurrences}, nil
}

func editEvent(ctx context.Context, app *cli.App, input eventEditInput) (*eventMutationOutput, error) {
	if app == nil || app.EditEventHandler == nil {
		return nil, errors.New("event editing requires database connection")
	}
	loc := app.Loc()

	scope, occurrence, err := parseTarget(input.Scope, input.EventID, input.OccurrenceDate, loc)
	if err != nil {
		return nil, err
	}

	update := domain.EventUpdate{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		IsAllDay:    input.AllDay,
		Color:       input.Color,
		Category:    input.Category,
	}
	if update.StartsAt, err = parseOptionalTimestamp(input.Start, loc); err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	if update.EndsAt, err = parseOptionalTimestamp(input.End, loc); err != nil {
		return nil, fmt.Errorf("invalid end: %w", err)
	}
	if update.RecurrenceRule, err = parseRecurrence(input.Recurrence, input.RRule, loc); err != nil {
		return nil, err
	}

	result, err := app.EditEventHandler.Handle(ctx, commands.EditEventCommand{
		UserID:         app.CurrentUserID,
		EventID:        input.EventID,
		Scope:          scope,
		OccurrenceDate: occurrence,
		Update:         update,
	})
	if err != nil {
		return nil, err
	}
	return &eventMutationOutput{Scope: result.Scope, Saved: result.EventIDs, Degraded: result.Degraded}, nil
}

func deleteEvent(ctx context.Context, app *cli.App, input eventDeleteInput) (*eventMutationOutput, error) {
	if app == nil || app.DeleteEventHandler == nil {
		return nil, errors.New("event deletion requires database connection")
	}

	scope, occurrence, err := parseTarget(input.Scope, input.EventID, input.OccurrenceDate, app.Loc())
	if err != nil {
		return nil, err
	}

	result, err := app.DeleteEventHandler.Handle(ctx, commands.DeleteEventCommand{
		UserID:         app.CurrentUserID,
		EventID:        input.EventID,
		Scope:          scope,
		OccurrenceDate: occurrence,
	})
	if err != nil {
		return nil, err
	}
	return &eventMutationOutput{
		Scope:    result.Scope,
		Saved:    result.Updated,
		Deleted:  result.Deleted,
		Degraded: result.Degraded,
	}, nil
}

// parseTarget reads the scope and occurrence date of an edit or delete.
// Without a scope, an occurrence target means that occurrence only and
// anything else means the whole series.
func parseTarget(scope, eventID, occurrenceDate string, loc *time.Location) (domain.EditScope, *time.Time, error) {
	occurrence, err := parseOptionalDate(occurrenceDate, loc)
	if err != nil {
		return "", nil, fmt.Errorf("invalid occurrence_date: %w", err)
	}
	if scope == "" {
		if occurrence != nil || strings.Contains(eventID, "@") {
			return domain.ScopeSingle, occurrence, nil
		}
		return domain.ScopeAll, nil, nil
	}
	parsed, err := domain.ParseEditScope(scope)
	if err != nil {
		return "", nil, err
	}
	return parsed, occurrence, nil
}
