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
	slotsDate     string
	slotsDuration int
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Find the best free slots on a day",
	Long: `Find free slots of --duration minutes within your working hours,
ranked by how well they fit your productive hours.

Examples:
  cadence schedule slots
  cadence schedule slots --date 2024-03-12 --duration 90`,
	Aliases: []string{"available", "free"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.FindSlotsHandler == nil {
			fmt.Println("Schedule commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}
		loc := app.Loc()

		date, err := cli.ParseDate(slotsDate, loc, time.Now())
		if err != nil {
			return err
		}
		if slotsDuration < 0 {
			return fmt.Errorf("--duration must be positive")
		}

		slots, err := app.FindSlotsHandler.Handle(cmd.Context(), queries.FindSlotsQuery{
			UserID:          app.CurrentUserID,
			Date:            date,
			DurationMinutes: slotsDuration,
		})
		if err != nil {
			return fmt.Errorf("failed to find slots: %w", err)
		}

		if len(slots) == 0 {
			fmt.Printf("No free slots on %s.\n", date.Format("Monday, January 2"))
			return nil
		}

		fmt.Printf("Best slots on %s\n", date.Format("Monday, January 2"))
		fmt.Println(strings.Repeat("-", 40))
		for i, slot := range slots {
			fmt.Printf("  %d. %s - %s (%s)  score %d\n", i+1,
				slot.Start.In(loc).Format(cli.ClockLayout),
				slot.End.In(loc).Format(cli.ClockLayout),
				formatDuration(slot.End.Sub(slot.Start)),
				slot.Score)
			if slot.Reason != "" {
				fmt.Printf("     %s\n", slot.Reason)
			}
		}
		return nil
	},
}

func init() {
	slotsCmd.Flags().StringVarP(&slotsDate, "date", "d", "", "date to search (YYYY-MM-DD, default: today)")
	slotsCmd.Flags().IntVarP(&slotsDuration, "duration", "m", 0, "slot length in minutes (default: profile slot duration)")
}
