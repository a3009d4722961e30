package mcp

import (
	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container) *cli.App {
	cliApp := cli.NewApp(
		container.CreateEventHandler,
		container.EditEventHandler,
		container.DeleteEventHandler,
		container.CorrectCategoryHandler,
		container.ListOccurrencesHandler,
		container.GetEventHandler,
		container.DetectConflictsHandler,
		container.FindSlotsHandler,
		container.GetPatternsHandler,
		container.GetSuggestionsHandler,
		container.DismissSuggestionHandler,
	)

	cliApp.SetCurrentUserID(container.UserID)
	cliApp.SetLocation(container.Location)
	cliApp.SetImport(container.ImportEventsHandler, container.EventRepo)

	if container.SyncService != nil {
		cliApp.SetSyncService(container.SyncService)
	}

	return cliApp
}
