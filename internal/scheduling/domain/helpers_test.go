package domain

import (
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
)

func at(d, hh, mm int) time.Time {
	return time.Date(2024, time.March, d, hh, mm, 0, 0, time.UTC)
}

func event(id string, start, end time.Time) calendarDomain.Event {
	return calendarDomain.Event{
		ID:       id,
		Title:    id,
		StartsAt: start,
		EndsAt:   end,
		TimeZone: start.Location().String(),
	}
}
