package event

import (
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/adapter/cli"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
)

// resolveScope picks the edit scope for a command. Without --scope, an
// occurrence target means that occurrence only and anything else means the
// whole series.
func resolveScope(flag, eventID, occurrence string) (domain.EditScope, error) {
	if flag != "" {
		return domain.ParseEditScope(flag)
	}
	if occurrence != "" || strings.Contains(eventID, "@") {
		return domain.ScopeSingle, nil
	}
	return domain.ScopeAll, nil
}

// resolveOccurrence parses --occurrence, or returns nil when it is empty.
func resolveOccurrence(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := cli.ParseDate(value, loc, time.Time{})
	if err != nil {
		return nil, err
	}
	return &date, nil
}
