package domain

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEmptyTitle         = errors.New("event title cannot be empty")
	ErrInvalidTimeRange   = errors.New("event end must not be before its start")
	ErrInvalidRule        = errors.New("invalid recurrence rule")
	ErrUnknownFrequency   = errors.New("unknown recurrence frequency")
	ErrConflictingEnd     = errors.New("recurrence rule cannot set both end date and count")
	ErrInvalidScope       = errors.New("invalid edit scope")
	ErrInvalidOccurrence  = errors.New("invalid occurrence id")
	ErrInvalidWeekdayCode = errors.New("invalid weekday code")
)
