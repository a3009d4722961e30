package cli

import (
	"time"

	calendarApp "github.com/felixgeelhaar/cadence/internal/calendar/application"
	calendarCommands "github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	calendarQueries "github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	scheduleCommands "github.com/felixgeelhaar/cadence/internal/scheduling/application/commands"
	scheduleQueries "github.com/felixgeelhaar/cadence/internal/scheduling/application/queries"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Event Command Handlers
	CreateEventHandler     *calendarCommands.CreateEventHandler
	EditEventHandler       *calendarCommands.EditEventHandler
	DeleteEventHandler     *calendarCommands.DeleteEventHandler
	CorrectCategoryHandler *calendarCommands.CorrectCategoryHandler
	ImportEventsHandler    *calendarCommands.ImportEventsHandler

	// Event Query Handlers
	ListOccurrencesHandler *calendarQueries.ListOccurrencesHandler
	GetEventHandler        *calendarQueries.GetEventHandler

	// Schedule Query Handlers
	DetectConflictsHandler *scheduleQueries.DetectConflictsHandler
	FindSlotsHandler       *scheduleQueries.FindSlotsHandler
	GetPatternsHandler     *scheduleQueries.GetPatternsHandler
	GetSuggestionsHandler  *scheduleQueries.GetSuggestionsHandler

	// Schedule Command Handlers
	DismissSuggestionHandler *scheduleCommands.DismissSuggestionHandler

	// EventRepo backs the export and list commands, which read stored
	// events without expansion.
	EventRepo calendarDomain.EventRepository

	// Calendar Sync. Nil unless a CalDAV server is configured.
	SyncService *calendarApp.SyncService

	// Current user (configured per environment)
	CurrentUserID uuid.UUID
	// Location is used to read wall-clock flags such as --start 09:00.
	Location *time.Location
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	createEventHandler *calendarCommands.CreateEventHandler,
	editEventHandler *calendarCommands.EditEventHandler,
	deleteEventHandler *calendarCommands.DeleteEventHandler,
	correctCategoryHandler *calendarCommands.CorrectCategoryHandler,
	listOccurrencesHandler *calendarQueries.ListOccurrencesHandler,
	getEventHandler *calendarQueries.GetEventHandler,
	detectConflictsHandler *scheduleQueries.DetectConflictsHandler,
	findSlotsHandler *scheduleQueries.FindSlotsHandler,
	getPatternsHandler *scheduleQueries.GetPatternsHandler,
	getSuggestionsHandler *scheduleQueries.GetSuggestionsHandler,
	dismissSuggestionHandler *scheduleCommands.DismissSuggestionHandler,
) *App {
	return &App{
		CreateEventHandler:       createEventHandler,
		EditEventHandler:         editEventHandler,
		DeleteEventHandler:       deleteEventHandler,
		CorrectCategoryHandler:   correctCategoryHandler,
		ListOccurrencesHandler:   listOccurrencesHandler,
		GetEventHandler:          getEventHandler,
		DetectConflictsHandler:   detectConflictsHandler,
		FindSlotsHandler:         findSlotsHandler,
		GetPatternsHandler:       getPatternsHandler,
		GetSuggestionsHandler:    getSuggestionsHandler,
		DismissSuggestionHandler: dismissSuggestionHandler,
		CurrentUserID:            uuid.Nil,
		Location:                 time.Local,
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id uuid.UUID) {
	a.CurrentUserID = id
}

// SetLocation updates the location wall-clock input is read in.
func (a *App) SetLocation(loc *time.Location) {
	if loc != nil {
		a.Location = loc
	}
}

// SetImport wires the handler and repository used by calendar import and export.
func (a *App) SetImport(handler *calendarCommands.ImportEventsHandler, repo calendarDomain.EventRepository) {
	a.ImportEventsHandler = handler
	a.EventRepo = repo
}

// SetSyncService updates the calendar sync service.
func (a *App) SetSyncService(service *calendarApp.SyncService) {
	a.SyncService = service
}

// Loc returns the configured location, or time.Local.
func (a *App) Loc() *time.Location {
	if a == nil || a.Location == nil {
		return time.Local
	}
	return a.Location
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
