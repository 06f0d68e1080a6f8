// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// Clock abstracts wall-clock time so recency windows can be pinned in tests
type Clock interface {
	Now() time.Time
}

// SystemClock reports the current time in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return UTCNow()
}

// FixedClock always reports the same instant
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// StartOfDay truncates t to midnight in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Microsecond)
}

// DaysAgo returns the calendar day n days before now, keeping the wall time
func DaysAgo(now time.Time, n int) time.Time {
	return now.AddDate(0, 0, -n)
}

// WholeDaysBetween returns the number of complete 24h periods from then to now
func WholeDaysBetween(then, now time.Time) int {
	if now.Before(then) {
		return 0
	}
	return int(now.Sub(then) / (24 * time.Hour))
}
