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
	patternsLookback int
	patternsRefresh  bool
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show the working patterns learned from your calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetPatternsHandler == nil {
			fmt.Println("Schedule commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}

		patterns, err := app.GetPatternsHandler.Handle(cmd.Context(), queries.GetPatternsQuery{
			UserID:       app.CurrentUserID,
			Now:          time.Now(),
			LookbackDays: patternsLookback,
			Refresh:      patternsRefresh,
		})
		if err != nil {
			return fmt.Errorf("failed to analyze patterns: %w", err)
		}

		fmt.Println("Scheduling patterns")
		fmt.Println(strings.Repeat("-", 40))
		if patterns.EventCount == 0 {
			fmt.Println("  (no history yet, showing profile defaults)")
		}
		fmt.Printf("  Working hours:    %02d:00 - %02d:00\n", patterns.WorkStartHour, patterns.WorkEndHour)
		fmt.Printf("  Productive hours: %s\n", joinInts(patterns.ProductiveHours))
		if len(patterns.BusyDays) > 0 {
			days := make([]string, len(patterns.BusyDays))
			for i, d := range patterns.BusyDays {
				days[i] = d.String()
			}
			fmt.Printf("  Busy days:        %s\n", strings.Join(days, ", "))
		}
		if len(patterns.PreferredCategories) > 0 {
			fmt.Printf("  Top categories:   %s\n", strings.Join(patterns.PreferredCategories, ", "))
		}
		if patterns.AverageDurationMinutes > 0 {
			fmt.Printf("  Average event:    %s\n", formatDuration(time.Duration(patterns.AverageDurationMinutes)*time.Minute))
		}
		fmt.Printf("  Events analyzed:  %d\n", patterns.EventCount)
		return nil
	},
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%02d:00", v)
	}
	return strings.Join(parts, ", ")
}

func init() {
	patternsCmd.Flags().IntVar(&patternsLookback, "lookback", queries.DefaultLookbackDays, "days of history to analyze")
	patternsCmd.Flags().BoolVar(&patternsRefresh, "refresh", false, "ignore cached patterns")
}
