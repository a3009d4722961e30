package event

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/application/queries"
)

func printEventLine(ev queries.EventDTO, loc *time.Location) {
	when := cli.FormatRange(ev.StartsAt, ev.EndsAt, loc)
	if ev.IsAllDay {
		when = ev.StartsAt.In(loc).Format("Mon Jan 2") + " (all day)"
	}
	marker := " "
	if ev.SeriesID != "" || ev.IsRecurring {
		marker = "↻"
	}
	fmt.Printf("  %s %-28s %-30s [%s]\n", marker, when, truncate(ev.Title, 30), ev.Category)
	fmt.Printf("    %s\n", ev.ID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
