package event

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	internalApp "github.com/felixgeelhaar/cadence/internal/app"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/pkg/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testUserID is a fixed user ID for tests
var testUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

var march4 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// setupLocalModeTestApp creates a test application with SQLite for integration tests.
func setupLocalModeTestApp(t *testing.T) *cli.App {
	t.Helper()

	profile := config.DefaultProfile()
	profile.Timezone = "UTC"
	cfg := &config.Config{
		AppEnv:         "test",
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel:       "error",
		UserID:         testUserID.String(),
		MaxOccurrences: 500,
		Profile:        profile,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	container, err := internalApp.NewLocalContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

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
	cliApp.SetCurrentUserID(testUserID)
	cliApp.SetLocation(container.Location)
	cliApp.SetImport(container.ImportEventsHandler, container.EventRepo)

	cli.SetApp(cliApp)
	t.Cleanup(func() { cli.SetApp(nil) })
	return cliApp
}

// resetFlags clears the Changed state left behind by earlier tests.
func resetFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if f := cmd.Flags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
}

func createWeeklySeries(t *testing.T, app *cli.App, title string, count int) string {
	t.Helper()
	result, err := app.CreateEventHandler.Handle(context.Background(), commands.CreateEventCommand{
		UserID:     app.CurrentUserID,
		Title:      title,
		StartsAt:   march4,
		EndsAt:     march4.Add(time.Hour),
		Recurrence: &domain.RecurrenceRule{Frequency: domain.FrequencyWeekly, Interval: 1, Count: count},
	})
	require.NoError(t, err)
	return result.EventID
}

func marchOccurrences(t *testing.T, app *cli.App) []queries.EventDTO {
	t.Helper()
	occurrences, err := app.ListOccurrencesHandler.Handle(context.Background(), queries.ListOccurrencesQuery{
		UserID: app.CurrentUserID,
		Start:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return occurrences
}

func TestAddCmd_CreatesWeeklySeries(t *testing.T) {
	app := setupLocalModeTestApp(t)

	addRecurrence.reset()
	addTitle = "Team standup"
	addDate = "2024-03-04"
	addStart = "09:00"
	addEnd = "09:15"
	addAllDay = false
	addCategory = ""
	addRecurrence.repeat = "weekly"
	addRecurrence.count = 4
	defer addRecurrence.reset()

	addCmd.SetContext(context.Background())
	require.NoError(t, addCmd.RunE(addCmd, nil))

	occurrences := marchOccurrences(t, app)
	require.Len(t, occurrences, 4)
	for i, occ := range occurrences {
		assert.Equal(t, "Team standup", occ.Title)
		assert.Equal(t, domain.CategoryMeeting, occ.Category)
		assert.True(t, march4.AddDate(0, 0, 7*i).Equal(occ.StartsAt), "occurrence %d starts %s", i, occ.StartsAt)
		assert.Equal(t, 15*time.Minute, occ.EndsAt.Sub(occ.StartsAt))
	}
}

func TestAddCmd_AllDay(t *testing.T) {
	app := setupLocalModeTestApp(t)

	addRecurrence.reset()
	addTitle = "Offsite"
	addDate = "2024-03-12"
	addStart = ""
	addEnd = "2024-03-13"
	addAllDay = true
	defer func() { addAllDay = false }()

	addCmd.SetContext(context.Background())
	require.NoError(t, addCmd.RunE(addCmd, nil))

	occurrences := marchOccurrences(t, app)
	require.Len(t, occurrences, 1)
	assert.True(t, occurrences[0].IsAllDay)
	assert.Equal(t, 48*time.Hour, occurrences[0].EndsAt.Sub(occurrences[0].StartsAt))
}

func TestAddCmd_InvalidInput(t *testing.T) {
	setupLocalModeTestApp(t)
	addCmd.SetContext(context.Background())

	tests := []struct {
		name  string
		setup func()
	}{
		{name: "bad start", setup: func() { addStart = "9am" }},
		{name: "end before start", setup: func() { addStart = "10:00"; addEnd = "09:00" }},
		{name: "rrule and repeat", setup: func() { addRecurrence.rrule = "FREQ=DAILY"; addRecurrence.repeat = "daily" }},
		{name: "unknown frequency", setup: func() { addRecurrence.repeat = "hourly" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addRecurrence.reset()
			addTitle = "Focus"
			addDate = "2024-03-04"
			addStart = "09:00"
			addEnd = "10:00"
			addAllDay = false
			tt.setup()
			defer addRecurrence.reset()

			assert.Error(t, addCmd.RunE(addCmd, nil))
		})
	}
}

func TestEditCmd_SingleOccurrence(t *testing.T) {
	app := setupLocalModeTestApp(t)
	seriesID := createWeeklySeries(t, app, "Design review", 4)

	editScope, editOccurrence, editDate = "", "", ""
	editStart, editEnd = "", ""
	editRecurrence.reset()
	defer resetFlags(editCmd, "start", "end")
	require.NoError(t, editCmd.Flags().Set("start", "14:00"))
	require.NoError(t, editCmd.Flags().Set("end", "15:00"))

	editCmd.SetContext(context.Background())
	require.NoError(t, editCmd.RunE(editCmd, []string{domain.OccurrenceID(seriesID, "2024-03-11")}))
	editStart, editEnd = "", ""

	occurrences := marchOccurrences(t, app)
	require.Len(t, occurrences, 4)
	moved := occurrences[1]
	assert.Equal(t, seriesID, moved.SeriesID)
	assert.True(t, time.Date(2024, 3, 11, 14, 0, 0, 0, time.UTC).Equal(moved.StartsAt))
	assert.True(t, march4.AddDate(0, 0, 14).Equal(occurrences[2].StartsAt))
}

func TestEditCmd_AllRenamesSeries(t *testing.T) {
	app := setupLocalModeTestApp(t)
	seriesID := createWeeklySeries(t, app, "Design review", 3)

	editScope, editOccurrence, editDate = "", "", ""
	editStart, editEnd = "", ""
	editRecurrence.reset()
	defer resetFlags(editCmd, "title")
	require.NoError(t, editCmd.Flags().Set("title", "Architecture review"))
	defer func() { editTitle = "" }()

	editCmd.SetContext(context.Background())
	require.NoError(t, editCmd.RunE(editCmd, []string{seriesID}))

	for _, occ := range marchOccurrences(t, app) {
		assert.Equal(t, "Architecture review", occ.Title)
	}
}

func TestEditCmd_InvalidScope(t *testing.T) {
	setupLocalModeTestApp(t)

	editScope = "sometimes"
	defer func() { editScope = "" }()

	editCmd.SetContext(context.Background())
	assert.Error(t, editCmd.RunE(editCmd, []string{"whatever"}))
}

func TestDeleteCmd_ThisAndFuture(t *testing.T) {
	app := setupLocalModeTestApp(t)
	seriesID := createWeeklySeries(t, app, "Gym", 4)

	deleteScope = "thisAndFuture"
	deleteOccurrence = "2024-03-18"
	defer func() { deleteScope, deleteOccurrence = "", "" }()

	deleteCmd.SetContext(context.Background())
	require.NoError(t, deleteCmd.RunE(deleteCmd, []string{seriesID}))

	occurrences := marchOccurrences(t, app)
	require.Len(t, occurrences, 2)
	assert.Equal(t, "2024-03-11", occurrences[1].OccurrenceDate)
}

func TestDeleteCmd_SingleOccurrenceID(t *testing.T) {
	app := setupLocalModeTestApp(t)
	seriesID := createWeeklySeries(t, app, "Gym", 4)

	deleteScope, deleteOccurrence = "", ""
	deleteCmd.SetContext(context.Background())
	require.NoError(t, deleteCmd.RunE(deleteCmd, []string{domain.OccurrenceID(seriesID, "2024-03-11")}))

	occurrences := marchOccurrences(t, app)
	require.Len(t, occurrences, 3)
	for _, occ := range occurrences {
		assert.NotEqual(t, "2024-03-11", occ.OccurrenceDate)
	}
}

func TestCategorizeCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	seriesID := createWeeklySeries(t, app, "Run club", 2)

	categorizeCmd.SetContext(context.Background())
	require.NoError(t, categorizeCmd.RunE(categorizeCmd, []string{seriesID, "Health"}))

	ev, err := app.GetEventHandler.Handle(context.Background(), queries.GetEventQuery{
		UserID:  testUserID,
		EventID: seriesID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryHealth, ev.Category)

	assert.Error(t, categorizeCmd.RunE(categorizeCmd, []string{seriesID, " "}))
}

func TestReadCommands(t *testing.T) {
	app := setupLocalModeTestApp(t)
	seriesID := createWeeklySeries(t, app, "Design review", 4)
	ctx := context.Background()

	listCategory = ""
	listCmd.SetContext(ctx)
	require.NoError(t, listCmd.RunE(listCmd, nil))

	occurrencesFrom, occurrencesTo = "2024-03-01", "2024-03-31"
	defer func() { occurrencesFrom, occurrencesTo = "", "" }()
	occurrencesCmd.SetContext(ctx)
	require.NoError(t, occurrencesCmd.RunE(occurrencesCmd, nil))

	showCmd.SetContext(ctx)
	require.NoError(t, showCmd.RunE(showCmd, []string{seriesID}))
	require.NoError(t, showCmd.RunE(showCmd, []string{domain.OccurrenceID(seriesID, "2024-03-18")}))
	assert.Error(t, showCmd.RunE(showCmd, []string{uuid.NewString()}))
}

func TestCommands_WithoutApp(t *testing.T) {
	cli.SetApp(nil)
	ctx := context.Background()

	for _, cmd := range []*cobra.Command{addCmd, listCmd, occurrencesCmd, showCmd, editCmd, deleteCmd, categorizeCmd} {
		cmd.SetContext(ctx)
		assert.NoError(t, cmd.RunE(cmd, []string{"id", "category"}), cmd.Name())
	}
}

func TestResolveScope(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		eventID    string
		occurrence string
		want       domain.EditScope
		wantErr    bool
	}{
		{name: "explicit", flag: "thisAndFuture", eventID: "s1", want: domain.ScopeThisAndFuture},
		{name: "occurrence id", eventID: "s1@2024-03-11", want: domain.ScopeSingle},
		{name: "occurrence flag", eventID: "s1", occurrence: "2024-03-11", want: domain.ScopeSingle},
		{name: "series id", eventID: "s1", want: domain.ScopeAll},
		{name: "unknown", flag: "never", eventID: "s1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveScope(tt.flag, tt.eventID, tt.occurrence)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidScope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecurrenceFlags_Rule(t *testing.T) {
	tests := []struct {
		name    string
		flags   recurrenceFlags
		want    *domain.RecurrenceRule
		wantErr bool
	}{
		{name: "none", flags: recurrenceFlags{}, want: nil},
		{
			name:  "weekly on days",
			flags: recurrenceFlags{repeat: "Weekly", interval: 2, days: []string{"mo", "we"}, count: 6},
			want: &domain.RecurrenceRule{
				Frequency:  domain.FrequencyWeekly,
				Interval:   2,
				DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
				Count:      6,
			},
		},
		{
			name:  "rrule",
			flags: recurrenceFlags{rrule: "RRULE:FREQ=DAILY;COUNT=3"},
			want:  &domain.RecurrenceRule{Frequency: domain.FrequencyDaily, Interval: 1, Count: 3},
		},
		{name: "bad day", flags: recurrenceFlags{repeat: "weekly", days: []string{"XX"}}, wantErr: true},
		{name: "bad rrule", flags: recurrenceFlags{rrule: "FREQ=SOMETIMES"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.rule(time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeRule(t *testing.T) {
	assert.Equal(t, "does not repeat", describeRule(nil))
	assert.Equal(t, "every day, 3 times", describeRule(&domain.RuleInput{Frequency: "daily", Count: 3}))
	assert.Equal(t, "every 2 weeks on MO,WE, until 2024-06-30",
		describeRule(&domain.RuleInput{Frequency: "weekly", Interval: 2, DaysOfWeek: []int{1, 3}, EndDate: "2024-06-30"}))
}
