package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	scheduleCommands "github.com/felixgeelhaar/cadence/internal/scheduling/application/commands"
	scheduleQueries "github.com/felixgeelhaar/cadence/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/felixgeelhaar/mcp-go"
)

type scheduleConflictsInput struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	// ProposedStart and ProposedEnd check one time range instead of listing.
	ProposedStart  string `json:"proposed_start,omitempty"`
	ProposedEnd    string `json:"proposed_end,omitempty"`
	ExcludeEventID string `json:"exclude_event_id,omitempty"`
}

type scheduleConflictsOutput struct {
	Count     int               `json:"count"`
	Conflicts []domain.Conflict `json:"conflicts"`
}

type scheduleSlotsInput struct {
	Date            string `json:"date,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type scheduleSlotsOutput struct {
	Date  string            `json:"date"`
	Slots []domain.TimeSlot `json:"slots"`
}

type schedulePatternsInput struct {
	LookbackDays int  `json:"lookback_days,omitempty"`
	Refresh      bool `json:"refresh,omitempty"`
}

type scheduleSuggestionsInput struct {
	IncompleteTodos  int  `json:"incomplete_todos,omitempty"`
	IncludeDismissed bool `json:"include_dismissed,omitempty"`
}

type scheduleSuggestionsOutput struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
}

type scheduleDismissInput struct {
	SuggestionID string `json:"suggestion_id" jsonschema:"required"`
}

func registerScheduleTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("schedule.conflicts").
		Description("Find overlapping events between two dates (inclusive, YYYY-MM-DD; default the next 7 days), " +
			"or check whether proposed_start..proposed_end ('YYYY-MM-DD HH:MM') would conflict.").
		Handler(func(ctx context.Context, input scheduleConflictsInput) (*scheduleConflictsOutput, error) {
			return findConflicts(ctx, app, input, time.Now())
		})

	srv.Tool("schedule.find_slots").
		Description("Find the best free slots of duration_minutes on a date within working hours, ranked by fit.").
		Handler(func(ctx context.Context, input scheduleSlotsInput) (*scheduleSlotsOutput, error) {
			return findSlots(ctx, app, input, time.Now())
		})

	srv.Tool("schedule.patterns").
		Description("Get the working hours, productive hours, busy days and preferred categories learned from recent events.").
		Handler(func(ctx context.Context, input schedulePatternsInput) (*domain.UserPatterns, error) {
			if app == nil || app.GetPatternsHandler == nil {
				return nil, errors.New("patterns require database connection")
			}
			patterns, err := app.GetPatternsHandler.Handle(ctx, scheduleQueries.GetPatternsQuery{
				UserID:       app.CurrentUserID,
				Now:          time.Now(),
				LookbackDays: input.LookbackDays,
				Refresh:      input.Refresh,
			})
			if err != nil {
				return nil, err
			}
			return &patterns, nil
		})

	srv.Tool("schedule.suggestions").
		Description("Get up to five suggestions for the coming week, such as adding breaks or protecting focus time.").
		Handler(func(ctx context.Context, input scheduleSuggestionsInput) (*scheduleSuggestionsOutput, error) {
			if app == nil || app.GetSuggestionsHandler == nil {
				return nil, errors.New("suggestions require database connection")
			}
			suggestions, err := app.GetSuggestionsHandler.Handle(ctx, scheduleQueries.GetSuggestionsQuery{
				UserID:           app.CurrentUserID,
				Now:              time.Now(),
				IncompleteTodos:  input.IncompleteTodos,
				IncludeDismissed: input.IncludeDismissed,
			})
			if err != nil {
				return nil, err
			}
			if suggestions == nil {
				suggestions = []domain.Suggestion{}
			}
			return &scheduleSuggestionsOutput{Suggestions: suggestions}, nil
		})

	srv.Tool("schedule.dismiss_suggestion").
		Description("Hide a suggestion from future schedule.suggestions results").
		Handler(func(ctx context.Context, input scheduleDismissInput) (map[string]string, error) {
			if app == nil || app.DismissSuggestionHandler == nil {
				return nil, errors.New("suggestions require database connection")
			}
			err := app.DismissSuggestionHandler.Handle(ctx, scheduleCommands.DismissSuggestionCommand{
				UserID:       app.CurrentUserID,
				SuggestionID: input.SuggestionID,
			})
			if err != nil {
				return nil, err
			}
			return map[string]string{"dismissed": input.SuggestionID}, nil
		})

	return nil
}

func findConflicts(ctx context.Context, app *cli.App, input scheduleConflictsInput, now time.Time) (*scheduleConflictsOutput, error) {
	if app == nil || app.DetectConflictsHandler == nil {
		return nil, errors.New("conflict detection requires database connection")
	}
	loc := app.Loc()

	if input.ProposedStart != "" || input.ProposedEnd != "" {
		start, err := parseTimestamp(input.ProposedStart, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid proposed_start: %w", err)
		}
		end, err := parseTimestamp(input.ProposedEnd, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid proposed_end: %w", err)
		}
		conflict, err := app.DetectConflictsHandler.Check(ctx, scheduleQueries.CheckConflictQuery{
			UserID:         app.CurrentUserID,
			Start:          start,
			End:            end,
			ExcludeEventID: input.ExcludeEventID,
		})
		if err != nil {
			return nil, err
		}
		out := &scheduleConflictsOutput{Conflicts: []domain.Conflict{}}
		if conflict != nil {
			out.Conflicts = append(out.Conflicts, *conflict)
		}
		out.Count = len(out.Conflicts)
		return out, nil
	}

	start, end, err := parseWindow(input.Start, input.End, loc, now)
	if err != nil {
		return nil, err
	}
	conflicts, err := app.DetectConflictsHandler.Handle(ctx, scheduleQueries.DetectConflictsQuery{
		UserID: app.CurrentUserID,
		Start:  start,
		End:    end,
	})
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []domain.Conflict{}
	}
	return &scheduleConflictsOutput{Count: len(conflicts), Conflicts: conflicts}, nil
}

func findSlots(ctx context.Context, app *cli.App, input scheduleSlotsInput, now time.Time) (*scheduleSlotsOutput, error) {
	if app == nil || app.FindSlotsHandler == nil {
		return nil, errors.New("slot search requires database connection")
	}
	if input.DurationMinutes < 0 {
		return nil, errors.New("duration_minutes must be positive")
	}

	date, err := parseDate(input.Date, app.Loc(), now)
	if err != nil {
		return nil, err
	}
	slots, err := app.FindSlotsHandler.Handle(ctx, scheduleQueries.FindSlotsQuery{
		UserID:          app.CurrentUserID,
		Date:            date,
		DurationMinutes: input.DurationMinutes,
	})
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []domain.TimeSlot{}
	}
	return &scheduleSlotsOutput{Date: date.Format(cli.DateLayout), Slots: slots}, nil
}
