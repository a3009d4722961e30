package calendar

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/infrastructure/ical"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your events as an iCalendar file",
	Long: `Export every stored event as iCalendar (.ics) for Google Calendar,
Outlook, Apple Calendar and other calendar apps. Recurring series are
written once with their RRULE and EXDATEs.

Examples:
  cadence calendar export              # Export to stdout
  cadence calendar export -o cal.ics   # Export to file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.EventRepo == nil {
			fmt.Println("Calendar export requires a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}

		events, err := app.EventRepo.FindByUser(cmd.Context(), app.CurrentUserID)
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := security.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}

		if err := ical.Encode(w, events); err != nil {
			return fmt.Errorf("failed to write calendar: %w", err)
		}

		if exportOutput != "" {
			fmt.Printf("Exported %d event(s) to %s\n", len(events), exportOutput)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
}
