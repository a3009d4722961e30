package schedule

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Cmd is the schedule command group
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Analyze your schedule",
	Long:  `Find conflicts and free slots, learn your working patterns and get suggestions.`,
}

func init() {
	Cmd.AddCommand(conflictsCmd)
	Cmd.AddCommand(slotsCmd)
	Cmd.AddCommand(patternsCmd)
	Cmd.AddCommand(suggestCmd)
	Cmd.AddCommand(dismissCmd)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 && minutes > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}
