// Package scheduler runs the clock-aligned background jobs: weekly
// broadcast, daily expiry reminders and nightly membership reconciliation.
// Each worker owns one goroutine, exits on context cancellation and returns
// a stop func from Start.
package scheduler

import (
	"context"
	"time"

	"doorman/models"
	"doorman/service"
)

// SubscriberLister is the subscriber surface the workers consume.
type SubscriberLister interface {
	AllActive(ctx context.Context) ([]*models.User, error)
	ExpiringWithin(ctx context.Context, days int) ([]*models.User, error)
}

// ExpiryReconciler runs the revoke-on-expiry sweep.
type ExpiryReconciler interface {
	ReconcileExpired(ctx context.Context) (*service.ReconcileReport, error)
}

// AdminLister resolves the recipients of operational summaries.
type AdminLister interface {
	Admins(ctx context.Context) ([]*models.Admin, error)
}

// nextDailyRun returns the wait until the next occurrence of hour:00 UTC.
func nextDailyRun(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

// nextWeeklyRun returns the wait until the next occurrence of weekday at
// hour:00 UTC.
func nextWeeklyRun(now time.Time, weekday time.Weekday, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	for next.Weekday() != weekday || !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
