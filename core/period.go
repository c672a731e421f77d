package core

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME PERIOD - Reporting windows anchored at the call time
// =============================================================================

// TimePeriod names a reporting window ending "now". The start boundary is
// derived from the anchor timestamp when the report runs, so two calls in
// different weeks see different windows.
type TimePeriod string

const (
	PeriodToday     TimePeriod = "Today"
	PeriodThisWeek  TimePeriod = "ThisWeek"
	PeriodThisMonth TimePeriod = "ThisMonth"
	PeriodThisYear  TimePeriod = "ThisYear"
)

// ParseTimePeriod converts a wire string to a TimePeriod. Unrecognized
// values are an explicit error, never a silent default.
func ParseTimePeriod(s string) (TimePeriod, error) {
	switch TimePeriod(s) {
	case PeriodToday, PeriodThisWeek, PeriodThisMonth, PeriodThisYear:
		return TimePeriod(s), nil
	}
	return "", &ValidationError{Field: "period", Reason: fmt.Sprintf("unrecognized value %q", s)}
}

// Bounds returns the inclusive [start, now] window for the period.
// Weeks start on Monday. The anchor's location is preserved.
func (p TimePeriod) Bounds(now time.Time) (start, end time.Time, err error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodToday:
		start = midnight
	case PeriodThisWeek:
		offset := (int(now.Weekday()) + 6) % 7 // Monday = 0
		start = midnight.AddDate(0, 0, -offset)
	case PeriodThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodThisYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}, time.Time{}, &ValidationError{Field: "period", Reason: fmt.Sprintf("unrecognized value %q", p)}
	}
	return start, now, nil
}

// WithinRange reports whether t falls in the inclusive [from, to] window.
func WithinRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
