package service

import (
	"time"
)

// Today returns the current date truncated to day granularity in UTC.
// Subscription windows are tracked as whole dates, matching the stored
// DATE column.
func Today() time.Time {
	return DateOf(time.Now().UTC())
}

// DateOf truncates a timestamp to its UTC date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date days after t, at day granularity.
func AddDays(t time.Time, days int) time.Time {
	return DateOf(t).AddDate(0, 0, days)
}
