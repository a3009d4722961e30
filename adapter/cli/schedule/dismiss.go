package schedule

import (
	"fmt"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/scheduling/application/commands"
	"github.com/spf13/cobra"
)

var dismissCmd = &cobra.Command{
	Use:   "dismiss <suggestion-id>",
	Short: "Hide a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DismissSuggestionHandler == nil {
			fmt.Println("Schedule commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}

		err := app.DismissSuggestionHandler.Handle(cmd.Context(), commands.DismissSuggestionCommand{
			UserID:       app.CurrentUserID,
			SuggestionID: args[0],
		})
		if err != nil {
			return fmt.Errorf("failed to dismiss suggestion: %w", err)
		}

		fmt.Printf("Dismissed %s\n", args[0])
		return nil
	},
}
