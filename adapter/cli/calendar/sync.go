package calendar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync with the configured CalDAV calendar",
	Long: `Push your events to the CalDAV calendar set by CALDAV_URL, then
import the events other clients added there.

The worker runs the same sync on the CALDAV_SYNC_SCHEDULE cron schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil {
			return errors.New("sync requires database connection")
		}
		if app.SyncService == nil {
			return errors.New("calendar sync not configured (set CALDAV_URL)")
		}

		report, err := app.SyncService.Sync(cmd.Context(), app.CurrentUserID)
		if report != nil {
			fmt.Println("Calendar sync")
			fmt.Println(strings.Repeat("-", 40))
			fmt.Printf("  Pushed:   %d created, %d updated, %d deleted, %d failed\n",
				report.Pushed.Created, report.Pushed.Updated, report.Pushed.Deleted, report.Pushed.Failed)
			fmt.Printf("  Pulled:   %d event(s)\n", report.Pulled)
			fmt.Printf("  Imported: %d new, %d updated, %d skipped\n",
				report.Imported.Created, report.Imported.Updated, report.Imported.Skipped)
		}
		if err != nil {
			return fmt.Errorf("calendar sync failed: %w", err)
		}
		return nil
	},
}
