package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/spf13/cobra"
)

var (
	editScope       string
	editOccurrence  string
	editTitle       string
	editDescription string
	editLocation    string
	editDate        string
	editStart       string
	editEnd         string
	editAllDay      bool
	editColor       string
	editCategory    string
	editRecurrence  recurrenceFlags
)

var editCmd = &cobra.Command{
	Use:   "edit <event-id>",
	Short: "Edit an event, one occurrence, or a series",
	Long: `Edit an event. For a recurring series choose what the edit applies to:

  single         only the occurrence on --occurrence (a detached copy is stored)
  all            every occurrence of the series
  thisAndFuture  the occurrence on --occurrence and everything after it

Passing an occurrence id (<series-id>@YYYY-MM-DD) implies its date and
defaults the scope to single. Only the flags you pass are changed.

Examples:
  cadence event edit 4f1c...@2024-03-11 --start 14:00 --end 15:00
  cadence event edit 4f1c... --scope thisAndFuture --occurrence 2024-04-01 --title "Weekly sync"
  cadence event edit 4f1c... --scope all --repeat weekly --days TU,TH`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.EditEventHandler == nil {
			fmt.Println("Event commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}
		loc := app.Loc()
		eventID := args[0]

		scope, err := resolveScope(editScope, eventID, editOccurrence)
		if err != nil {
			return err
		}
		occurrence, err := resolveOccurrence(editOccurrence, loc)
		if err != nil {
			return fmt.Errorf("invalid --occurrence: %w", err)
		}

		update := domain.EventUpdate{}
		flags := cmd.Flags()
		if flags.Changed("title") {
			update.Title = &editTitle
		}
		if flags.Changed("description") {
			update.Description = &editDescription
		}
		if flags.Changed("location") {
			update.Location = &editLocation
		}
		if flags.Changed("all-day") {
			update.IsAllDay = &editAllDay
		}
		if flags.Changed("color") {
			update.Color = &editColor
		}
		if flags.Changed("category") {
			category := strings.ToLower(editCategory)
			update.Category = &category
		}

		if editStart != "" || editEnd != "" {
			date, err := editBaseDate(cmd, app, eventID, occurrence, loc)
			if err != nil {
				return err
			}
			if editStart != "" {
				startsAt, err := cli.ParseDateTime(date, editStart, loc)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				update.StartsAt = &startsAt
			}
			if editEnd != "" {
				endsAt, err := cli.ParseDateTime(date, editEnd, loc)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
				update.EndsAt = &endsAt
			}
		}

		rule, err := editRecurrence.rule(loc)
		if err != nil {
			return err
		}
		update.RecurrenceRule = rule

		result, err := app.EditEventHandler.Handle(cmd.Context(), commands.EditEventCommand{
			UserID:         app.CurrentUserID,
			EventID:        eventID,
			Scope:          scope,
			OccurrenceDate: occurrence,
			Update:         update,
		})
		if err != nil {
			return fmt.Errorf("failed to edit event: %w", err)
		}

		fmt.Printf("Edited %s (scope: %s)\n", eventID, result.Scope)
		if result.Degraded {
			fmt.Println("  Not a recurring event; the scope was ignored.")
		}
		for _, id := range result.EventIDs {
			fmt.Printf("  saved %s\n", id)
		}
		return nil
	},
}

// editBaseDate is the date clock-only --start and --end values refer to:
// --date when given, otherwise the current date of the target.
func editBaseDate(cmd *cobra.Command, app *cli.App, eventID string, occurrence *time.Time, loc *time.Location) (time.Time, error) {
	if editDate != "" {
		return cli.ParseDate(editDate, loc, time.Time{})
	}
	if occurrence != nil {
		return *occurrence, nil
	}
	if app.GetEventHandler == nil {
		return cli.ParseDate("", loc, time.Now())
	}
	ev, err := app.GetEventHandler.Handle(cmd.Context(), queries.GetEventQuery{
		UserID:  app.CurrentUserID,
		EventID: eventID,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load event: %w", err)
	}
	return cli.ParseDate("", loc, ev.StartsAt)
}

func init() {
	editCmd.Flags().StringVar(&editScope, "scope", "", "single, all or thisAndFuture (default: single for occurrences, all otherwise)")
	editCmd.Flags().StringVar(&editOccurrence, "occurrence", "", "date of the occurrence to edit (YYYY-MM-DD)")
	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editDescription, "description", "", "new description")
	editCmd.Flags().StringVar(&editLocation, "location", "", "new location")
	editCmd.Flags().StringVarP(&editDate, "date", "d", "", "date clock-only --start/--end refer to (default: the occurrence's date)")
	editCmd.Flags().StringVar(&editStart, "start", "", "new start time (HH:MM or YYYY-MM-DD HH:MM)")
	editCmd.Flags().StringVar(&editEnd, "end", "", "new end time (HH:MM or YYYY-MM-DD HH:MM)")
	editCmd.Flags().BoolVar(&editAllDay, "all-day", false, "make the event all-day (or not, with --all-day=false)")
	editCmd.Flags().StringVar(&editColor, "color", "", "new display color")
	editCmd.Flags().StringVar(&editCategory, "category", "", "new category")
	addRecurrenceFlags(editCmd, &editRecurrence)
}
