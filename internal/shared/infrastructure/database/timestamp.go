package database

import "time"

// timestampLayout is fixed-width so stored values sort lexically in time
// order on both drivers.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in UTC for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTime parses a value written by FormatTime, or any RFC 3339 time.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// NullableTime formats t for a nullable column.
func NullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}
