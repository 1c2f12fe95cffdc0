package scheduler

import (
	"context"
	"fmt"
	"time"

	"doorman/service"

	log "github.com/sirupsen/logrus"
)

// ReminderWorker sends daily renewal reminders to subscribers whose term
// ends within the look-ahead window.
type ReminderWorker struct {
	subscribers   SubscriberLister
	messenger     service.Messenger
	lookaheadDays int
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(subscribers SubscriberLister, messenger service.Messenger, lookaheadDays int) *ReminderWorker {
	return &ReminderWorker{
		subscribers:   subscribers,
		messenger:     messenger,
		lookaheadDays: lookaheadDays,
	}
}

// Start begins the reminder worker. The returned func stops it.
func (w *ReminderWorker) Start(ctx context.Context, reminderHour int) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Reminder worker started, next run at %02d:00 UTC", reminderHour)

		for {
			waitDuration := nextDailyRun(time.Now().UTC(), reminderHour)
			log.Infof("Reminder worker waiting %v until next run", waitDuration)

			select {
			case <-ctx.Done():
				log.Info("Reminder worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Reminder worker shutting down (stop requested)...")
				return
			case <-time.After(waitDuration):
				w.Run(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// Run executes one reminder pass. A failed delivery never stops the pass.
func (w *ReminderWorker) Run(ctx context.Context) {
	expiring, err := w.subscribers.ExpiringWithin(ctx, w.lookaheadDays)
	if err != nil {
		log.Errorf("Error listing expiring subscriptions: %v", err)
		return
	}

	var delivered, failed int
	for _, user := range expiring {
		if user.SubscriptionEnd == nil {
			continue
		}
		text := fmt.Sprintf(
			"Reminder: your subscription ends on %s. Renew with /start to keep your group access.",
			user.SubscriptionEnd.Format("2006-01-02"))

		if _, result := service.Notify(ctx, w.messenger, user.TelegramID, text); result == service.Delivered {
			delivered++
		} else {
			failed++
		}
	}

	log.WithFields(log.Fields{
		"expiring":  len(expiring),
		"delivered": delivered,
		"failed":    failed,
	}).Info("Completed expiry reminder pass")
}
