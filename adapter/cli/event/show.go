package event

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show an event, series or occurrence",
	Long: `Show one event. Occurrence ids of the form <series-id>@YYYY-MM-DD
are accepted and resolved against their series.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetEventHandler == nil {
			fmt.Println("Event commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}
		loc := app.Loc()

		ev, err := app.GetEventHandler.Handle(cmd.Context(), queries.GetEventQuery{
			UserID:  app.CurrentUserID,
			EventID: args[0],
		})
		if err != nil {
			return fmt.Errorf("failed to get event: %w", err)
		}

		fmt.Println(ev.Title)
		fmt.Println(strings.Repeat("-", 40))
		if ev.IsAllDay {
			fmt.Printf("  Date:        %s (all day)\n", ev.StartsAt.In(loc).Format("Monday, January 2, 2006"))
		} else {
			fmt.Printf("  When:        %s\n", cli.FormatRange(ev.StartsAt, ev.EndsAt, loc))
		}
		fmt.Printf("  Category:    %s\n", ev.Category)
		if ev.Location != "" {
			fmt.Printf("  Location:    %s\n", ev.Location)
		}
		if ev.Description != "" {
			fmt.Printf("  Description: %s\n", ev.Description)
		}
		if ev.TimeZone != "" {
			fmt.Printf("  Time zone:   %s\n", ev.TimeZone)
		}
		if ev.IsRecurring {
			fmt.Printf("  Repeats:     %s\n", describeRule(ev.Recurrence))
		}
		if len(ev.Exceptions) > 0 {
			fmt.Printf("  Skipped:     %s\n", strings.Join(ev.Exceptions, ", "))
		}
		if ev.SeriesID != "" {
			fmt.Printf("  Series:      %s\n", ev.SeriesID)
		}
		if ev.OccurrenceDate != "" {
			fmt.Printf("  Occurrence:  %s\n", ev.OccurrenceDate)
		}
		fmt.Printf("  ID:          %s\n", ev.ID)
		return nil
	},
}
