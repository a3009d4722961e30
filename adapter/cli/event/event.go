package event

import (
	"github.com/spf13/cobra"
)

// Cmd is the event command group
var Cmd = &cobra.Command{
	Use:     "event",
	Short:   "Manage events and recurring series",
	Long:    `Create, list, edit and delete calendar events. Recurring events are stored once and expanded when listed.`,
	Aliases: []string{"events", "ev"},
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(occurrencesCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(editCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(categorizeCmd)
}
