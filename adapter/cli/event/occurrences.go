package event

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	"github.com/spf13/cobra"
)

var (
	occurrencesFrom     string
	occurrencesTo       string
	occurrencesCategory string
)

var occurrencesCmd = &cobra.Command{
	Use:   "occurrences",
	Short: "Show events in a date range with recurring series expanded",
	Long: `Show every occurrence between --from and --to (inclusive),
sorted by start time. Defaults to the next seven days.

Examples:
  cadence event occurrences
  cadence event occurrences --from 2024-03-01 --to 2024-03-31 --category meeting`,
	Aliases: []string{"agenda", "occ"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListOccurrencesHandler == nil {
			fmt.Println("Event commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}
		loc := app.Loc()

		start, end, err := cli.ParseRange(occurrencesFrom, occurrencesTo, 7, loc, time.Now())
		if err != nil {
			return err
		}

		occurrences, err := app.ListOccurrencesHandler.Handle(cmd.Context(), queries.ListOccurrencesQuery{
			UserID:   app.CurrentUserID,
			Start:    start,
			End:      end,
			Category: occurrencesCategory,
		})
		if err != nil {
			return fmt.Errorf("failed to list occurrences: %w", err)
		}

		if len(occurrences) == 0 {
			fmt.Printf("No events between %s and %s.\n", start.Format(cli.DateLayout), end.AddDate(0, 0, -1).Format(cli.DateLayout))
			return nil
		}

		day := ""
		for _, occ := range occurrences {
			if d := occ.StartsAt.In(loc).Format(cli.DateLayout); d != day {
				day = d
				fmt.Printf("\n%s\n", occ.StartsAt.In(loc).Format("Monday, January 2"))
			}
			printEventLine(occ, loc)
		}
		fmt.Printf("\n%d occurrence(s)\n", len(occurrences))
		return nil
	},
}

func init() {
	occurrencesCmd.Flags().StringVar(&occurrencesFrom, "from", "", "first date (YYYY-MM-DD, default: today)")
	occurrencesCmd.Flags().StringVar(&occurrencesTo, "to", "", "last date, inclusive (YYYY-MM-DD, default: six days after --from)")
	occurrencesCmd.Flags().StringVar(&occurrencesCategory, "category", "", "only show events of this category")
}
