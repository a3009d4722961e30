package calendar

import (
	"github.com/spf13/cobra"
)

// Cmd is the calendar command group
var Cmd = &cobra.Command{
	Use:     "calendar",
	Short:   "Exchange events with other calendars",
	Long:    `Import and export iCalendar (.ics) files and sync with a CalDAV server.`,
	Aliases: []string{"cal"},
}

func init() {
	Cmd.AddCommand(importCmd)
	Cmd.AddCommand(exportCmd)
	Cmd.AddCommand(syncCmd)
}
