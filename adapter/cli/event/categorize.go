package event

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/spf13/cobra"
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize <event-id> <category>",
	Short: "Correct the category of an event",
	Long: `Set the category of an event and remember the correction, so new
events with the same title get the same category.

Categories: meeting, focus, health, personal, travel, social, other`,
	Aliases: []string{"category", "cat"},
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CorrectCategoryHandler == nil {
			fmt.Println("Event commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}

		category := strings.ToLower(args[1])
		err := app.CorrectCategoryHandler.Handle(cmd.Context(), commands.CorrectCategoryCommand{
			UserID:   app.CurrentUserID,
			EventID:  args[0],
			Category: category,
		})
		if err != nil {
			return fmt.Errorf("failed to correct category: %w", err)
		}

		fmt.Printf("Category of %s set to %s\n", args[0], category)
		return nil
	},
}
