// Package timeutil provides the date formatting and arithmetic helpers shared
// by the SDK and its domain services: locale-safe formatting with an explicit
// invalid-date sentinel, inclusive range checks, and parsing of the time
// strings servers send in rate-limit and retry headers.
package timeutil

import (
	"fmt"
	"time"
)

// InvalidDate is the literal returned when a time value cannot be formatted.
const InvalidDate = "Invalid date"

// DateRange bounds a period. EndDate before StartDate makes the range empty.
type DateRange struct {
	StartDate time.Time
	EndDate   time.Time
}

// FormatDate renders t using a Go reference layout. The zero value and dates
// outside a sane calendar window format as the literal "Invalid date" instead
// of a misleading year-one timestamp.
func FormatDate(t time.Time, layout string) string {
	if !IsValidDate(t) {
		return InvalidDate
	}
	return t.Format(layout)
}

// IsValidDate reports whether t holds a plausible calendar date.
func IsValidDate(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	y := t.Year()
	return y >= 1000 && y <= 9999
}

// IsDateInRange reports whether t falls inside r, bounds inclusive.
// An inverted range (end before start) contains nothing.
func IsDateInRange(t time.Time, r DateRange) bool {
	if !IsValidDate(t) {
		return false
	}
	if r.EndDate.Before(r.StartDate) {
		return false
	}
	return !t.Before(r.StartDate) && !t.After(r.EndDate)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FormatDuration renders a duration in the compact form used by dashboards,
// e.g. "2h 5m" or "45s". Sub-second durations round to "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
