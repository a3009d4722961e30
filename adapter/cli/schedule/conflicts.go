package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/spf13/cobra"
)

var (
	conflictsFrom    string
	conflictsTo      string
	conflictsDate    string
	conflictsStart   string
	conflictsEnd     string
	conflictsExclude string
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Find overlapping events",
	Long: `List overlapping events between --from and --to (default: the next
seven days), with a severity and suggested moves for each conflict.

With --start and --end, check whether a proposed time would conflict
with your calendar instead.

Examples:
  cadence schedule conflicts
  cadence schedule conflicts --from 2024-03-01 --to 2024-03-31
  cadence schedule conflicts --date 2024-03-11 --start 09:30 --end 10:30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DetectConflictsHandler == nil {
			fmt.Println("Schedule commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}
		loc := app.Loc()

		if conflictsStart != "" || conflictsEnd != "" {
			return checkProposal(cmd, app, loc)
		}

		start, end, err := cli.ParseRange(conflictsFrom, conflictsTo, 7, loc, time.Now())
		if err != nil {
			return err
		}

		conflicts, err := app.DetectConflictsHandler.Handle(cmd.Context(), queries.DetectConflictsQuery{
			UserID: app.CurrentUserID,
			Start:  start,
			End:    end,
		})
		if err != nil {
			return fmt.Errorf("failed to detect conflicts: %w", err)
		}

		if len(conflicts) == 0 {
			fmt.Println("No conflicts found.")
			return nil
		}

		fmt.Printf("%d conflict(s)\n", len(conflicts))
		fmt.Println(strings.Repeat("-", 40))
		for _, c := range conflicts {
			printConflict(c, loc)
		}
		return nil
	},
}

func checkProposal(cmd *cobra.Command, app *cli.App, loc *time.Location) error {
	date, err := cli.ParseDate(conflictsDate, loc, time.Now())
	if err != nil {
		return err
	}
	start, err := cli.ParseDateTime(date, conflictsStart, loc)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := cli.ParseDateTime(date, conflictsEnd, loc)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("--end must be after --start")
	}

	conflict, err := app.DetectConflictsHandler.Check(cmd.Context(), queries.CheckConflictQuery{
		UserID:         app.CurrentUserID,
		Start:          start,
		End:            end,
		ExcludeEventID: conflictsExclude,
	})
	if err != nil {
		return fmt.Errorf("failed to check conflicts: %w", err)
	}

	if conflict == nil {
		fmt.Printf("%s is free.\n", cli.FormatRange(start, end, loc))
		return nil
	}
	fmt.Printf("%s conflicts with %d event(s)\n", cli.FormatRange(start, end, loc), len(conflict.ConflictingEventIDs))
	printConflict(*conflict, loc)
	return nil
}

func printConflict(c domain.Conflict, loc *time.Location) {
	fmt.Printf("  [%s] %s\n", c.Severity, c.SubjectEventID)
	for _, id := range c.ConflictingEventIDs {
		fmt.Printf("    overlaps %s\n", id)
	}
	for i, s := range c.Suggestions {
		if i < len(c.Alternatives) {
			alt := c.Alternatives[i]
			fmt.Printf("    -> %s (%s)\n", s, cli.FormatRange(alt.Start, alt.End, loc))
			continue
		}
		fmt.Printf("    -> %s\n", s)
	}
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsFrom, "from", "", "first date (YYYY-MM-DD, default: today)")
	conflictsCmd.Flags().StringVar(&conflictsTo, "to", "", "last date, inclusive (YYYY-MM-DD)")
	conflictsCmd.Flags().StringVarP(&conflictsDate, "date", "d", "", "date of the proposed time (YYYY-MM-DD, default: today)")
	conflictsCmd.Flags().StringVar(&conflictsStart, "start", "", "proposed start (HH:MM or YYYY-MM-DD HH:MM)")
	conflictsCmd.Flags().StringVar(&conflictsEnd, "end", "", "proposed end (HH:MM or YYYY-MM-DD HH:MM)")
	conflictsCmd.Flags().StringVar(&conflictsExclude, "exclude", "", "event id to ignore, e.g. the event being moved")
}
