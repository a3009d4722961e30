package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/commands"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/spf13/cobra"
)

var (
	addTitle       string
	addDescription string
	addLocation    string
	addDate        string
	addStart       string
	addEnd         string
	addAllDay      bool
	addColor       string
	addCategory    string
	addRecurrence  recurrenceFlags
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an event or recurring series",
	Long: `Create a single event, or a recurring series with --repeat or --rrule.

The category is inferred from the title unless --category is given.

Examples:
  cadence event add --title "Dentist" --date 2024-03-11 --start 09:30 --end 10:30
  cadence event add --title "Standup" --start 09:00 --end 09:15 --repeat weekly --days MO,TU,WE,TH,FR
  cadence event add --title "1:1" --start 14:00 --end 14:30 --repeat weekly --interval 2 --count 10
  cadence event add --title "Rent" --date 2024-01-01 --all-day --rrule "FREQ=MONTHLY;BYMONTHDAY=1"`,
	Aliases: []string{"new", "create"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CreateEventHandler == nil {
			fmt.Println("Event commands require a database connection.")
			fmt.Println("Set DATABASE_URL or SQLITE_PATH and try again.")
			return nil
		}
		loc := app.Loc()

		date, err := cli.ParseDate(addDate, loc, time.Now())
		if err != nil {
			return err
		}

		var startsAt, endsAt time.Time
		if addAllDay {
			startsAt = date
			endsAt = date.AddDate(0, 0, 1)
			if addEnd != "" {
				last, err := cli.ParseDate(addEnd, loc, date)
				if err != nil {
					return fmt.Errorf("all-day --end takes a date: %w", err)
				}
				endsAt = last.AddDate(0, 0, 1)
			}
		} else {
			startsAt, err = cli.ParseDateTime(date, addStart, loc)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endsAt, err = cli.ParseDateTime(date, addEnd, loc)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
		}

		rule, err := addRecurrence.rule(loc)
		if err != nil {
			return err
		}

		result, err := app.CreateEventHandler.Handle(cmd.Context(), commands.CreateEventCommand{
			UserID:      app.CurrentUserID,
			Title:       addTitle,
			Description: addDescription,
			Location:    addLocation,
			StartsAt:    startsAt,
			EndsAt:      endsAt,
			IsAllDay:    addAllDay,
			Color:       addColor,
			Category:    strings.ToLower(addCategory),
			Recurrence:  rule,
		})
		if err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		kind := "event"
		if rule != nil {
			kind = "series"
		}
		fmt.Printf("Created %s\n", kind)
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("  Title:    %s\n", addTitle)
		if addAllDay {
			fmt.Printf("  Date:     %s (all day)\n", startsAt.Format("Monday, January 2, 2006"))
		} else {
			fmt.Printf("  When:     %s\n", cli.FormatRange(startsAt, endsAt, loc))
		}
		fmt.Printf("  Category: %s\n", result.Category)
		if rule != nil {
			in := domain.RuleInputFrom(*rule)
			fmt.Printf("  Repeats:  %s\n", describeRule(&in))
		}
		fmt.Printf("  ID:       %s\n", result.EventID)

		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "event title (required)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "event description")
	addCmd.Flags().StringVar(&addLocation, "location", "", "event location")
	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "date of the (first) event (YYYY-MM-DD, default: today)")
	addCmd.Flags().StringVar(&addStart, "start", "", "start time (HH:MM or YYYY-MM-DD HH:MM)")
	addCmd.Flags().StringVar(&addEnd, "end", "", "end time (HH:MM or YYYY-MM-DD HH:MM); last date for all-day events")
	addCmd.Flags().BoolVar(&addAllDay, "all-day", false, "create an all-day event")
	addCmd.Flags().StringVar(&addColor, "color", "", "display color")
	addCmd.Flags().StringVar(&addCategory, "category", "", "category (default: inferred from the title)")
	addRecurrenceFlags(addCmd, &addRecurrence)

	addCmd.MarkFlagRequired("title")
}

func addRecurrenceFlags(cmd *cobra.Command, f *recurrenceFlags) {
	cmd.Flags().StringVar(&f.rrule, "rrule", "", "RFC 5545 recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO,WE;COUNT=8")
	cmd.Flags().StringVar(&f.repeat, "repeat", "", "repeat frequency (daily, weekly, monthly, yearly)")
	cmd.Flags().IntVar(&f.interval, "interval", 1, "repeat every N periods")
	cmd.Flags().StringSliceVar(&f.days, "days", nil, "weekdays for weekly repeats (MO,TU,WE,TH,FR,SA,SU)")
	cmd.Flags().IntVar(&f.count, "count", 0, "stop after N occurrences")
	cmd.Flags().StringVar(&f.until, "until", "", "last date of the series (YYYY-MM-DD)")
}
