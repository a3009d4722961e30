package domain

import (
	"sort"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
)

const (
	defaultWorkStartHour  = 9
	defaultWorkEndHour    = 17
	defaultDurationMinute = 60
	maxCountedDuration    = 8 * time.Hour
	topN                  = 3
)

// UserPatterns summarises how a user schedules their time.
type UserPatterns struct {
	WorkStartHour          int            `json:"work_start_hour"`
	WorkEndHour            int            `json:"work_end_hour"`
	ProductiveHours        []int          `json:"productive_hours"`
	BusyDays               []time.Weekday `json:"busy_days"`
	PreferredCategories    []string       `json:"preferred_categories"`
	AverageDurationMinutes int            `json:"average_duration_minutes"`
	EventCount             int            `json:"event_count"`
}

// DefaultPatterns returns the patterns assumed for a user without history.
func DefaultPatterns() UserPatterns {
	return UserPatterns{
		WorkStartHour:          defaultWorkStartHour,
		WorkEndHour:            defaultWorkEndHour,
		ProductiveHours:        []int{9, 10, 14},
		BusyDays:               []time.Weekday{},
		PreferredCategories:    []string{},
		AverageDurationMinutes: defaultDurationMinute,
	}
}

// IsProductiveHour reports whether hour is one of the user's busiest hours.
func (p UserPatterns) IsProductiveHour(hour int) bool {
	for _, h := range p.ProductiveHours {
		if h == hour {
			return true
		}
	}
	return false
}

// AnalyzePatterns derives UserPatterns from historical events. Hours are
// taken in each event's own location. All-day events count toward busy days
// and categories only.
func AnalyzePatterns(events []calendarDomain.Event) UserPatterns {
	p := DefaultPatterns()
	p.EventCount = len(events)

	hours := make(map[int]int)
	days := make(map[time.Weekday]int)
	categories := make(map[string]int)
	var total time.Duration
	var counted int
	minHour, maxHour := 24, -1

	for _, ev := range events {
		start := ev.StartsAt
		days[start.Weekday()]++
		if ev.Category != "" {
			categories[ev.Category]++
		}
		if ev.IsAllDay {
			continue
		}

		h := start.Hour()
		hours[h]++
		if h < minHour {
			minHour = h
		}
		if h > maxHour {
			maxHour = h
		}

		d := ev.Duration()
		if d > 0 && d <= maxCountedDuration {
			total += d
			counted++
		}
	}

	p.BusyDays = topKeys(days, func(a, b time.Weekday) bool { return a < b })
	p.PreferredCategories = topKeys(categories, func(a, b string) bool { return a < b })

	if len(hours) == 0 {
		return p
	}

	p.WorkStartHour = minHour
	p.WorkEndHour = maxHour + 1
	if p.WorkEndHour > 24 {
		p.WorkEndHour = 24
	}
	p.ProductiveHours = topKeys(hours, func(a, b int) bool { return a < b })
	if counted > 0 {
		p.AverageDurationMinutes = int((total / time.Duration(counted)).Minutes())
	}
	return p
}

// topKeys returns up to three keys by descending count, ties broken by less.
func topKeys[K comparable](counts map[K]int, less func(a, b K) bool) []K {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return less(keys[i], keys[j])
	})
	if len(keys) > topN {
		keys = keys[:topN]
	}
	return keys
}
