// Package ical encodes calendar events as iCalendar (RFC 5545) documents and
// decodes them back. Series carry their rule as an RRULE and their exceptions
// as date-valued EXDATEs.
package ical

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/google/uuid"
)

const (
	// ProductID identifies documents written by this package.
	ProductID = "-//cadence//calendar//EN"

	// PropParent links detached occurrences and split tails to their series.
	PropParent = "X-CADENCE-PARENT"

	dateLayout = "20060102"
)

// ErrNoEvents is returned when a document contains no VEVENT.
var ErrNoEvents = errors.New("no events in calendar")

// Encode writes events as a single VCALENDAR.
func Encode(w io.Writer, events []domain.Event) error {
	cal, err := ToCalendar(events)
	if err != nil {
		return err
	}
	return goical.NewEncoder(w).Encode(cal)
}

// ToCalendar builds a VCALENDAR holding one VEVENT per event. Projected
// occurrences are skipped; their series is exported instead.
func ToCalendar(events []domain.Event) (*goical.Calendar, error) {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, ProductID)

	for _, ev := range events {
		if ev.IsProjection() {
			continue
		}
		vevent, err := ToComponent(ev)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		cal.Children = append(cal.Children, vevent)
	}
	return cal, nil
}

// ToComponent converts one event into a VEVENT.
func ToComponent(ev domain.Event) (*goical.Component, error) {
	vevent := goical.NewEvent()
	vevent.Props.SetText(goical.PropUID, ev.ID)

	stamp := ev.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	vevent.Props.SetDateTime(goical.PropDateTimeStamp, stamp.UTC())
	if !ev.CreatedAt.IsZero() {
		vevent.Props.SetDateTime(goical.PropCreated, ev.CreatedAt.UTC())
	}

	vevent.Props.SetText(goical.PropSummary, ev.Title)
	if ev.Description != "" {
		vevent.Props.SetText(goical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		vevent.Props.SetText(goical.PropLocation, ev.Location)
	}
	if ev.Category != "" {
		vevent.Props.SetText(goical.PropCategories, ev.Category)
	}
	if ev.Color != "" {
		vevent.Props.SetText(goical.PropColor, ev.Color)
	}
	if ev.RecurrenceParentID != "" {
		vevent.Props.SetText(PropParent, ev.RecurrenceParentID)
	}

	start := exportable(ev.StartsAt)
	end := exportable(ev.EndsAt)
	if ev.IsAllDay {
		vevent.Props.SetDate(goical.PropDateTimeStart, start)
		vevent.Props.SetDate(goical.PropDateTimeEnd, allDayEnd(start, end))
	} else {
		vevent.Props.SetDateTime(goical.PropDateTimeStart, start)
		vevent.Props.SetDateTime(goical.PropDateTimeEnd, end)
	}

	if ev.IsSeries() {
		value, err := FormatRRule(*ev.RecurrenceRule, start)
		if err != nil {
			return nil, err
		}
		rrule := goical.NewProp(goical.PropRecurrenceRule)
		rrule.Value = value
		vevent.Props.Set(rrule)

		for _, key := range ev.RecurrenceExceptions {
			date, err := domain.ParseDateKey(key, time.UTC)
			if err != nil {
				continue
			}
			exdate := goical.NewProp(goical.PropExceptionDates)
			exdate.SetDate(date)
			vevent.Props.Add(exdate)
		}
	}
	return vevent.Component, nil
}

// exportable converts times in the process-local zone to UTC, since "Local"
// is not a TZID other clients can resolve.
func exportable(t time.Time) time.Time {
	if t.Location() == time.Local {
		return t.UTC()
	}
	return t
}

// allDayEnd returns the exclusive DTEND date of an all-day event.
func allDayEnd(start, end time.Time) time.Time {
	endDay := domain.StartOfDay(end)
	if endDay.After(domain.StartOfDay(start)) && end.Equal(endDay) {
		return endDay
	}
	if endDay.Before(domain.StartOfDay(start)) {
		endDay = domain.StartOfDay(start)
	}
	return endDay.AddDate(0, 0, 1)
}

// Decode reads every VCALENDAR in r and returns its events owned by userID.
// Floating date-times and dates are read as UTC.
func Decode(r io.Reader, userID uuid.UUID) ([]domain.Event, error) {
	dec := goical.NewDecoder(r)
	var cals []*goical.Calendar
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}
		cals = append(cals, cal)
	}

	events, err := FromCalendars(cals, userID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	return events, nil
}

// FromCalendars converts the VEVENTs of cals. VEVENTs with a RECURRENCE-ID
// become detached occurrences of their series, which gains an exception for
// the replaced date.
func FromCalendars(cals []*goical.Calendar, userID uuid.UUID) ([]domain.Event, error) {
	var events []domain.Event
	var overrides []*goical.Component
	for _, cal := range cals {
		if cal == nil {
			continue
		}
		for _, child := range cal.Children {
			if child.Name != goical.CompEvent {
				continue
			}
			if child.Props.Get(goical.PropRecurrenceID) != nil {
				overrides = append(overrides, child)
				continue
			}
			ev, err := FromComponent(child, userID)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}

	for _, comp := range overrides {
		ev, err := fromOverride(comp, userID, events)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// FromComponent converts a VEVENT into an event owned by userID.
func FromComponent(comp *goical.Component, userID uuid.UUID) (domain.Event, error) {
	uid := text(comp, goical.PropUID)
	if uid == "" {
		uid = uuid.NewString()
	}

	startProp := comp.Props.Get(goical.PropDateTimeStart)
	if startProp == nil {
		return domain.Event{}, fmt.Errorf("event %s: missing DTSTART", uid)
	}
	allDay := startProp.ValueType() == goical.ValueDate
	start, err := startProp.DateTime(time.UTC)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %s: DTSTART: %w", uid, err)
	}
	end, err := eventEnd(comp, start, allDay)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %s: %w", uid, err)
	}

	ev := domain.Event{
		ID:                 uid,
		UserID:             userID,
		Title:              text(comp, goical.PropSummary),
		Description:        text(comp, goical.PropDescription),
		Location:           text(comp, goical.PropLocation),
		StartsAt:           start,
		EndsAt:             end,
		TimeZone:           start.Location().String(),
		IsAllDay:           allDay,
		Color:              text(comp, goical.PropColor),
		Category:           firstCategory(comp),
		RecurrenceParentID: text(comp, PropParent),
		CreatedAt:          timestamp(comp, goical.PropCreated),
		UpdatedAt:          timestamp(comp, goical.PropDateTimeStamp),
	}
	if ev.Title == "" {
		ev.Title = "(untitled)"
	}

	if prop := comp.Props.Get(goical.PropRecurrenceRule); prop != nil {
		rule, err := ParseRRule(prop.Value, start.Location())
		if err != nil {
			return domain.Event{}, fmt.Errorf("event %s: %w", uid, err)
		}
		ev.SetRecurrence(&rule)
		ev.RecurrenceExceptions = exceptionKeys(comp, start.Location())
	}

	if err := ev.Validate(); err != nil {
		return domain.Event{}, fmt.Errorf("event %s: %w", uid, err)
	}
	return ev, nil
}

func fromOverride(comp *goical.Component, userID uuid.UUID, events []domain.Event) (domain.Event, error) {
	ev, err := FromComponent(comp, userID)
	if err != nil {
		return domain.Event{}, err
	}
	parentID := ev.ID

	recurrenceID, err := comp.Props.Get(goical.PropRecurrenceID).DateTime(ev.Zone())
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %s: RECURRENCE-ID: %w", parentID, err)
	}

	for i := range events {
		if events[i].ID != parentID {
			continue
		}
		key := domain.DateKey(recurrenceID.In(events[i].Zone()))
		if !events[i].HasException(key) {
			events[i].RecurrenceExceptions = append(events[i].RecurrenceExceptions, key)
		}
		ev.ID = domain.DerivedID(parentID, "single", key)
		ev.RecurrenceParentID = parentID
		ev.SetRecurrence(nil)
		return ev, nil
	}
	return domain.Event{}, fmt.Errorf("event %s: RECURRENCE-ID without its series", parentID)
}

func eventEnd(comp *goical.Component, start time.Time, allDay bool) (time.Time, error) {
	if prop := comp.Props.Get(goical.PropDateTimeEnd); prop != nil {
		end, err := prop.DateTime(start.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("DTEND: %w", err)
		}
		return end, nil
	}
	if prop := comp.Props.Get(goical.PropDuration); prop != nil {
		d, err := prop.Duration()
		if err != nil {
			return time.Time{}, fmt.Errorf("DURATION: %w", err)
		}
		return start.Add(d), nil
	}
	if allDay {
		return start.AddDate(0, 0, 1), nil
	}
	return start, nil
}

// exceptionKeys collects EXDATE values as date keys in loc. A property may
// carry a comma-separated list.
func exceptionKeys(comp *goical.Component, loc *time.Location) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, prop := range comp.Props.Values(goical.PropExceptionDates) {
		tzid := prop.Params.Get(goical.ParamTimezoneID)
		for _, raw := range strings.Split(prop.Value, ",") {
			t, ok := parseExceptionValue(strings.TrimSpace(raw), tzid, loc)
			if !ok {
				continue
			}
			key := domain.DateKey(t)
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func parseExceptionValue(raw, tzid string, loc *time.Location) (time.Time, bool) {
	if len(raw) == len(dateLayout) {
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		return t, err == nil
	}
	if strings.HasSuffix(raw, "Z") {
		t, err := time.Parse("20060102T150405Z", raw)
		return t.In(loc), err == nil
	}
	in := loc
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			in = l
		}
	}
	t, err := time.ParseInLocation("20060102T150405", raw, in)
	return t.In(loc), err == nil
}

func text(comp *goical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	s, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return s
}

func firstCategory(comp *goical.Component) string {
	prop := comp.Props.Get(goical.PropCategories)
	if prop == nil {
		return ""
	}
	first, _, _ := strings.Cut(prop.Value, ",")
	return strings.ToLower(strings.TrimSpace(first))
}

func timestamp(comp *goical.Component, name string) time.Time {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}
	}
	t, err := prop.DateTime(time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
