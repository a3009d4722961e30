package domain

import (
	"sort"
	"strings"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
)

// MaxSlots is the number of slots FindOptimalSlots returns at most.
const MaxSlots = 5

const (
	baseScore        = 50
	productiveBonus  = 30
	morningBonus     = 10
	postLunchPenalty = 10
	bufferBonus      = 5
	bufferWindow     = 15 * time.Minute
	postLunchHour    = 13
)

// TimeSlot is a scored candidate time for a new event.
type TimeSlot struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Score  int       `json:"score"`
	Reason string    `json:"reason"`
}

// FindOptimalSlots proposes whole-hour starts on targetDate within the
// user's work window that fit durationMinutes without overlapping existing
// timed events. Slots are ranked by score, earlier start first on ties.
func FindOptimalSlots(events []calendarDomain.Event, targetDate time.Time, durationMinutes int, patterns UserPatterns) []TimeSlot {
	if durationMinutes <= 0 {
		return []TimeSlot{}
	}
	loc := targetDate.Location()
	y, m, d := targetDate.Date()
	duration := time.Duration(durationMinutes) * time.Minute
	workEnd := time.Date(y, m, d, patterns.WorkEndHour, 0, 0, 0, loc)
	timed := timedEvents(events)

	slots := make([]TimeSlot, 0)
	for h := patterns.WorkStartHour; h < patterns.WorkEndHour; h++ {
		slot := TimeRange{Start: time.Date(y, m, d, h, 0, 0, 0, loc)}
		slot.End = slot.Start.Add(duration)
		if slot.End.After(workEnd) || overlapsAny(slot, timed) {
			continue
		}
		score, reason := scoreSlot(slot, h, patterns, timed)
		slots = append(slots, TimeSlot{Start: slot.Start, End: slot.End, Score: score, Reason: reason})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Score != slots[j].Score {
			return slots[i].Score > slots[j].Score
		}
		return slots[i].Start.Before(slots[j].Start)
	})
	if len(slots) > MaxSlots {
		slots = slots[:MaxSlots]
	}
	return slots
}

func scoreSlot(slot TimeRange, hour int, patterns UserPatterns, events []calendarDomain.Event) (int, string) {
	score := baseScore
	var reasons []string

	productive := patterns.IsProductiveHour(hour)
	if productive {
		score += productiveBonus
		reasons = append(reasons, "Peak productivity hour")
	}
	if hour >= 9 && hour <= 11 {
		score += morningBonus
		if !productive {
			reasons = append(reasons, "Morning focus time")
		}
	}
	if hour == postLunchHour {
		score -= postLunchPenalty
		reasons = append(reasons, "Post-lunch dip")
	}
	if !endsJustBefore(slot.Start, events) {
		score += bufferBonus
		reasons = append(reasons, "Buffer before slot")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, strings.Join(reasons, ", ")
}

func overlapsAny(r TimeRange, events []calendarDomain.Event) bool {
	for _, ev := range events {
		if r.Overlaps(RangeOf(ev)) {
			return true
		}
	}
	return false
}

// endsJustBefore reports whether an event ends within the buffer window
// leading up to start, inclusive of both ends.
func endsJustBefore(start time.Time, events []calendarDomain.Event) bool {
	from := start.Add(-bufferWindow)
	for _, ev := range events {
		if !ev.EndsAt.Before(from) && !ev.EndsAt.After(start) {
			return true
		}
	}
	return false
}
