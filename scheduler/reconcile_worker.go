package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doorman/service"

	log "github.com/sirupsen/logrus"
)

// ReconcileWorker runs the nightly revoke-on-expiry sweep and reports the
// outcome to every admin.
type ReconcileWorker struct {
	reconciler ExpiryReconciler
	admins     AdminLister
	messenger  service.Messenger
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(reconciler ExpiryReconciler, admins AdminLister, messenger service.Messenger) *ReconcileWorker {
	return &ReconcileWorker{
		reconciler: reconciler,
		admins:     admins,
		messenger:  messenger,
	}
}

// Start begins the reconcile worker. The returned func stops it.
func (w *ReconcileWorker) Start(ctx context.Context, reconcileHour int) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Reconcile worker started, next run at %02d:00 UTC", reconcileHour)

		for {
			waitDuration := nextDailyRun(time.Now().UTC(), reconcileHour)
			log.Infof("Reconcile worker waiting %v until next run", waitDuration)

			select {
			case <-ctx.Done():
				log.Info("Reconcile worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Reconcile worker shutting down (stop requested)...")
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

// Run executes one reconciliation sweep and fans the summary out to admins.
func (w *ReconcileWorker) Run(ctx context.Context) {
	report, err := w.reconciler.ReconcileExpired(ctx)
	if err != nil {
		if errors.Is(err, service.ErrNoLinkedGroup) {
			log.Warn("Skipping reconciliation summary: no group linked")
			return
		}
		log.Errorf("Error reconciling expired subscriptions: %v", err)
		return
	}
	if report.Expired == 0 {
		return
	}

	w.notifyAdmins(ctx, report)
}

func (w *ReconcileWorker) notifyAdmins(ctx context.Context, report *service.ReconcileReport) {
	admins, err := w.admins.Admins(ctx)
	if err != nil {
		log.Errorf("Error listing admins for reconciliation summary: %v", err)
		return
	}

	text := fmt.Sprintf(
		"Nightly sweep: %d subscriptions expired, %d removed from the group, %d notified, %d failures.",
		report.Expired, report.Removed, report.Notified, report.Failed)

	var delivered int
	for _, admin := range admins {
		if _, result := service.Notify(ctx, w.messenger, admin.TelegramID, text); result == service.Delivered {
			delivered++
		}
	}

	log.WithFields(log.Fields{
		"admins":    len(admins),
		"delivered": delivered,
	}).Info("Sent reconciliation summary")
}
