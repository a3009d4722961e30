package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/scheduling/application/queries"
	"github.com/spf13/cobra"
)

var (
	suggestTodos int
	suggestAll   bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Get suggestions for the coming week",
	Long: `Get up to five suggestions for the next seven days: focus time,
breaks between back-to-back meetings, overloaded days and more.

Dismissed suggestions are hidden unless --all is given.`,
	Aliases: []string{"suggestions"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetSuggestionsHandler == nil {
			fmt.Println("Schedule commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}

		suggestions, err := app.GetSuggestionsHandler.Handle(cmd.Context(), queries.GetSuggestionsQuery{
			UserID:           app.CurrentUserID,
			Now:              time.Now(),
			IncompleteTodos:  suggestTodos,
			IncludeDismissed: suggestAll,
		})
		if err != nil {
			return fmt.Errorf("failed to get suggestions: %w", err)
		}

		if len(suggestions) == 0 {
			fmt.Println("Nothing to suggest. Your week looks balanced.")
			return nil
		}

		fmt.Println("Suggestions")
		fmt.Println(strings.Repeat("-", 40))
		for _, s := range suggestions {
			fmt.Printf("  [%s] %s\n", s.Priority, s.Title)
			fmt.Printf("    %s\n", s.Message)
			fmt.Printf("    id: %s\n", s.ID)
		}
		fmt.Println()
		fmt.Println("Dismiss with: cadence schedule dismiss <id>")
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVar(&suggestTodos, "todos", 0, "number of open todos to plan time for")
	suggestCmd.Flags().BoolVar(&suggestAll, "all", false, "include dismissed suggestions")
}
