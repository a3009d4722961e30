package calendar

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/felixgeelhaar/cadence/internal/calendar/infrastructure/ical"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.ics>",
	Short: "Import events from an iCalendar file",
	Long: `Import the VEVENTs of an .ics file. Recurring events keep their
RRULE and EXDATEs, and RECURRENCE-ID overrides become detached
occurrences. Events already imported are updated in place.

Use - to read from standard input.

Examples:
  cadence calendar import ~/Downloads/work.ics
  curl -s https://example.com/team.ics | cadence calendar import -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ImportEventsHandler == nil {
			fmt.Println("Calendar import requires a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}

		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := security.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()
			r = f
		}

		events, err := ical.Decode(r, app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("failed to read calendar: %w", err)
		}

		result, err := app.ImportEventsHandler.Handle(cmd.Context(), commands.ImportEventsCommand{
			UserID: app.CurrentUserID,
			Events: events,
		})
		if err != nil {
			return fmt.Errorf("failed to import events: %w", err)
		}

		fmt.Printf("Imported %d event(s): %d new, %d updated, %d skipped\n",
			len(events), result.Created, result.Updated, result.Skipped)
		return nil
	},
}
