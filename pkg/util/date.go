package util

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used across the service.
const DateLayout = "2006-01-02"

// ParseDate parses a strict YYYY-MM-DD date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DateFromMillis truncates a unix-millisecond timestamp to its UTC calendar
// date. Never rounds: 23:59:59 stays on the same day.
func DateFromMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateLayout)
}

// ShiftDays moves t by n calendar days.
func ShiftDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}
