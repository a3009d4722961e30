package domain

import (
	"fmt"
	"sort"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
)

// SuggestionType identifies what a suggestion is about.
type SuggestionType string

const (
	SuggestionConflict    SuggestionType = "conflict"
	SuggestionImminent    SuggestionType = "imminent"
	SuggestionBackToBack  SuggestionType = "back_to_back"
	SuggestionBusyDay     SuggestionType = "busy_day"
	SuggestionTodoBacklog SuggestionType = "todo_backlog"
	SuggestionFreeBlock   SuggestionType = "free_block"
)

// Priority orders suggestions; lower values come first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// MarshalText renders the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Suggestion is a proactive scheduling hint. IDs are stable for unchanged
// input so callers can track dismissals.
type Suggestion struct {
	ID       string         `json:"id"`
	Type     SuggestionType `json:"type"`
	Priority Priority       `json:"priority"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Date     string         `json:"date,omitempty"`
	EventIDs []string       `json:"event_ids,omitempty"`
}

// SuggestionContext carries the inputs that are not events.
type SuggestionContext struct {
	Now             time.Time
	IncompleteTodos int
}

const (
	MaxSuggestions = 5

	lookaheadDays       = 7
	imminentWindow      = 30 * time.Minute
	backToBackGap       = 10 * time.Minute
	backToBackMinPairs  = 2
	busyDayMinEvents    = 5
	todoBacklogMinItems = 10
	freeBlockMin        = 120 * time.Minute
	afternoonStartHour  = 12
	afternoonEndHour    = 18
)

// GenerateSuggestions scans the seven days starting at the beginning of
// ctx.Now's day. Events are expected to be expanded occurrences.
func GenerateSuggestions(events []calendarDomain.Event, patterns UserPatterns, ctx SuggestionContext) []Suggestion {
	now := ctx.Now
	today := calendarDomain.StartOfDay(now)
	horizon := today.AddDate(0, 0, lookaheadDays)

	upcoming := make([]calendarDomain.Event, 0, len(events))
	for _, ev := range events {
		if !ev.StartsAt.Before(today) && ev.StartsAt.Before(horizon) {
			upcoming = append(upcoming, ev)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return byStart(upcoming[i], upcoming[j]) })

	var out []Suggestion
	if conflicts := DetectConflicts(upcoming); len(conflicts) > 0 {
		out = append(out, conflictSuggestion(conflicts))
	}
	if s, ok := imminentSuggestion(upcoming, now); ok {
		out = append(out, s)
	}

	covered := make(map[string]bool)
	for offset := 0; offset < 2; offset++ {
		day := today.AddDate(0, 0, offset)
		if s, ok := backToBackSuggestion(eventsOn(upcoming, day), day); ok {
			covered[s.Date] = true
			out = append(out, s)
		}
	}

	for offset := 0; offset < lookaheadDays; offset++ {
		day := today.AddDate(0, 0, offset)
		key := calendarDomain.DateKey(day)
		dayEvents := eventsOn(upcoming, day)
		if len(dayEvents) >= busyDayMinEvents && !covered[key] {
			out = append(out, Suggestion{
				ID:       "busy-day-" + key,
				Type:     SuggestionBusyDay,
				Priority: PriorityMedium,
				Title:    "Busy day ahead",
				Message:  fmt.Sprintf("%s has %d events; consider moving something", day.Format("Monday, Jan 2"), len(dayEvents)),
				Date:     key,
				EventIDs: eventIDs(dayEvents),
			})
		}
	}

	if ctx.IncompleteTodos >= todoBacklogMinItems {
		out = append(out, Suggestion{
			ID:       fmt.Sprintf("todo-backlog-%d", ctx.IncompleteTodos),
			Type:     SuggestionTodoBacklog,
			Priority: PriorityMedium,
			Title:    "Todo backlog",
			Message:  fmt.Sprintf("You have %d incomplete todos; block time to work through them", ctx.IncompleteTodos),
		})
	}

	if s, ok := freeBlockSuggestion(eventsOn(upcoming, today), now, patterns); ok {
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

func conflictSuggestion(conflicts []Conflict) Suggestion {
	ids := make([]string, len(conflicts))
	for i, c := range conflicts {
		ids[i] = c.SubjectEventID
	}
	return Suggestion{
		ID:       fmt.Sprintf("conflicts-%d", len(conflicts)),
		Type:     SuggestionConflict,
		Priority: PriorityHigh,
		Title:    "Scheduling conflicts",
		Message:  fmt.Sprintf("%d events overlap with other events this week", len(conflicts)),
		EventIDs: ids,
	}
}

func imminentSuggestion(events []calendarDomain.Event, now time.Time) (Suggestion, bool) {
	limit := now.Add(imminentWindow)
	var soon []calendarDomain.Event
	for _, ev := range events {
		if ev.IsAllDay {
			continue
		}
		if ev.StartsAt.After(now) && !ev.StartsAt.After(limit) {
			soon = append(soon, ev)
		}
	}
	if len(soon) == 0 {
		return Suggestion{}, false
	}
	msg := fmt.Sprintf("%q starts at %s", soon[0].Title, soon[0].StartsAt.Format("15:04"))
	if len(soon) > 1 {
		msg = fmt.Sprintf("%d events start within the next 30 minutes", len(soon))
	}
	return Suggestion{
		ID:       fmt.Sprintf("imminent-%d", len(soon)),
		Type:     SuggestionImminent,
		Priority: PriorityHigh,
		Title:    "Starting soon",
		Message:  msg,
		EventIDs: eventIDs(soon),
	}, true
}

func backToBackSuggestion(dayEvents []calendarDomain.Event, day time.Time) (Suggestion, bool) {
	timed := timedEvents(dayEvents)
	pairs := 0
	for i := 1; i < len(timed); i++ {
		gap := timed[i].StartsAt.Sub(timed[i-1].EndsAt)
		if gap >= 0 && gap < backToBackGap {
			pairs++
		}
	}
	if pairs < backToBackMinPairs {
		return Suggestion{}, false
	}
	key := calendarDomain.DateKey(day)
	return Suggestion{
		ID:       "back-to-back-" + key,
		Type:     SuggestionBackToBack,
		Priority: PriorityHigh,
		Title:    "Back-to-back events",
		Message:  fmt.Sprintf("%d events on %s leave less than 10 minutes between them; add buffers", pairs, day.Format("Jan 2")),
		Date:     key,
		EventIDs: eventIDs(timed),
	}, true
}

func freeBlockSuggestion(todayEvents []calendarDomain.Event, now time.Time, patterns UserPatterns) (Suggestion, bool) {
	y, m, d := now.Date()
	loc := now.Location()
	start := time.Date(y, m, d, afternoonStartHour, 0, 0, 0, loc)
	if now.After(start) {
		start = now
	}
	endHour := afternoonEndHour
	if patterns.WorkEndHour > afternoonStartHour {
		endHour = patterns.WorkEndHour
	}
	end := time.Date(y, m, d, endHour, 0, 0, 0, loc)
	if !end.After(start) {
		return Suggestion{}, false
	}

	afternoon := TimeRange{Start: start, End: end}
	best := TimeRange{}
	cursor := start
	for _, ev := range timedEvents(todayEvents) {
		r := RangeOf(ev)
		if !r.Overlaps(afternoon) {
			continue
		}
		if r.Start.Sub(cursor) > best.Duration() {
			best = TimeRange{Start: cursor, End: r.Start}
		}
		if r.End.After(cursor) {
			cursor = r.End
		}
	}
	if end.Sub(cursor) > best.Duration() {
		best = TimeRange{Start: cursor, End: end}
	}
	if best.Duration() < freeBlockMin {
		return Suggestion{}, false
	}

	key := calendarDomain.DateKey(now)
	return Suggestion{
		ID:       "free-block-" + key,
		Type:     SuggestionFreeBlock,
		Priority: PriorityLow,
		Title:    "Free afternoon block",
		Message: fmt.Sprintf("You are free %s–%s (%d minutes); a good time for focused work",
			best.Start.Format("15:04"), best.End.Format("15:04"), int(best.Duration().Minutes())),
		Date: key,
	}, true
}

// eventsOn returns the events starting on the calendar day of day, keeping
// their order.
func eventsOn(events []calendarDomain.Event, day time.Time) []calendarDomain.Event {
	key := calendarDomain.DateKey(day)
	var out []calendarDomain.Event
	for _, ev := range events {
		if calendarDomain.DateKey(ev.StartsAt.In(day.Location())) == key {
			out = append(out, ev)
		}
	}
	return out
}

func eventIDs(events []calendarDomain.Event) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}
