package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by events and customers
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date in UTC
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// FormatDate renders t as a calendar date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of whole days from start to end
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
