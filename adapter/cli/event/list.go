package event

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	"github.com/spf13/cobra"
)

var listCategory string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored events and series",
	Long: `List the events you created or imported. A recurring series is
shown once with its rule; use 'cadence event occurrences' to expand it.`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.EventRepo == nil {
			fmt.Println("Event commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}

		events, err := app.EventRepo.FindByUser(cmd.Context(), app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].StartsAt.Before(events[j].StartsAt)
		})

		shown := 0
		for _, ev := range events {
			if listCategory != "" && ev.Category != listCategory {
				continue
			}
			dto := queries.ToDTO(ev)
			printEventLine(dto, app.Loc())
			if dto.IsRecurring {
				fmt.Printf("    repeats %s\n", describeRule(dto.Recurrence))
			}
			shown++
		}
		if shown == 0 {
			fmt.Println("No events found.")
			return nil
		}
		fmt.Printf("\n%d event(s)\n", shown)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "only show events of this category")
}
