package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// WiringStatus reports which parts of the app are connected.
type WiringStatus struct {
	Status   string `json:"status"`
	UserID   string `json:"user_id"`
	TimeZone string `json:"time_zone"`
	Events   bool   `json:"events"`
	Schedule bool   `json:"schedule"`
	Import   bool   `json:"import"`
	Sync     bool   `json:"sync"`
}

// Status inspects the handlers the app was built with. Status is "ok" when
// both event and schedule handlers are present, "degraded" otherwise.
func (a *App) Status() WiringStatus {
	if a == nil {
		return WiringStatus{Status: "degraded"}
	}
	s := WiringStatus{
		UserID:   a.CurrentUserID.String(),
		TimeZone: a.Loc().String(),
		Events: a.CreateEventHandler != nil && a.EditEventHandler != nil &&
			a.DeleteEventHandler != nil && a.ListOccurrencesHandler != nil,
		Schedule: a.DetectConflictsHandler != nil && a.FindSlotsHandler != nil &&
			a.GetPatternsHandler != nil && a.GetSuggestionsHandler != nil,
		Import: a.ImportEventsHandler != nil && a.EventRepo != nil,
		Sync:   a.SyncService != nil,
	}
	s.Status = "degraded"
	if s.Events && s.Schedule {
		s.Status = "ok"
	}
	return s
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check CLI wiring health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		s := app.Status()
		fmt.Println(s.Status)
		if Verbose() {
			fmt.Printf("  user:     %s\n", s.UserID)
			fmt.Printf("  timezone: %s\n", s.TimeZone)
			fmt.Printf("  events:   %t\n", s.Events)
			fmt.Printf("  schedule: %t\n", s.Schedule)
			fmt.Printf("  import:   %t\n", s.Import)
			fmt.Printf("  sync:     %t\n", s.Sync)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
