package event

import (
	"fmt"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/spf13/cobra"
)

var (
	deleteScope      string
	deleteOccurrence string
)

var deleteCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Delete an event, one occurrence, or a series",
	Long: `Delete an event. For a recurring series, --scope single skips one
occurrence, thisAndFuture ends the series before --occurrence, and all
removes the series with every detached occurrence.

Examples:
  cadence event delete 4f1c...@2024-03-11
  cadence event delete 4f1c... --scope thisAndFuture --occurrence 2024-06-03
  cadence event delete 4f1c...`,
	Aliases: []string{"rm", "remove"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DeleteEventHandler == nil {
			fmt.Println("Event commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}
		eventID := args[0]

		scope, err := resolveScope(deleteScope, eventID, deleteOccurrence)
		if err != nil {
			return err
		}
		occurrence, err := resolveOccurrence(deleteOccurrence, app.Loc())
		if err != nil {
			return fmt.Errorf("invalid --occurrence: %w", err)
		}

		result, err := app.DeleteEventHandler.Handle(cmd.Context(), commands.DeleteEventCommand{
			UserID:         app.CurrentUserID,
			EventID:        eventID,
			Scope:          scope,
			OccurrenceDate: occurrence,
		})
		if err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}

		fmt.Printf("Deleted %s (scope: %s)\n", eventID, result.Scope)
		for _, id := range result.Deleted {
			fmt.Printf("  removed %s\n", id)
		}
		for _, id := range result.Updated {
			fmt.Printf("  updated %s\n", id)
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteScope, "scope", "", "single, all or thisAndFuture (default: single for occurrences, all otherwise)")
	deleteCmd.Flags().StringVar(&deleteOccurrence, "occurrence", "", "date of the occurrence to delete (YYYY-MM-DD)")
}
