package scheduler

import (
	"context"
	"fmt"
	"time"

	"doorman/models"
	"doorman/service"

	log "github.com/sirupsen/logrus"
)

// QuizStatsProvider feeds the community snapshot into the broadcast text.
type QuizStatsProvider interface {
	QuizStats(ctx context.Context) (*models.QuizStats, error)
}

// BroadcastWorker sends the weekly community message to every active
// subscriber on Monday mornings.
type BroadcastWorker struct {
	subscribers SubscriberLister
	quizStats   QuizStatsProvider
	messenger   service.Messenger
}

// NewBroadcastWorker creates a new broadcast worker
func NewBroadcastWorker(subscribers SubscriberLister, quizStats QuizStatsProvider, messenger service.Messenger) *BroadcastWorker {
	return &BroadcastWorker{
		subscribers: subscribers,
		quizStats:   quizStats,
		messenger:   messenger,
	}
}

// Start begins the broadcast worker. The returned func stops it.
func (w *BroadcastWorker) Start(ctx context.Context, broadcastHour int) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Broadcast worker started, next run Monday %02d:00 UTC", broadcastHour)

		for {
			waitDuration := nextWeeklyRun(time.Now().UTC(), time.Monday, broadcastHour)
			log.Infof("Broadcast worker waiting %v until next run", waitDuration)

			select {
			case <-ctx.Done():
				log.Info("Broadcast worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Broadcast worker shutting down (stop requested)...")
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

// Run executes one broadcast pass to all active subscribers.
func (w *BroadcastWorker) Run(ctx context.Context) {
	active, err := w.subscribers.AllActive(ctx)
	if err != nil {
		log.Errorf("Error listing active subscribers: %v", err)
		return
	}

	text := w.composeMessage(ctx)

	var delivered, failed int
	for _, user := range active {
		if _, result := service.Notify(ctx, w.messenger, user.TelegramID, text); result == service.Delivered {
			delivered++
		} else {
			failed++
		}
	}

	log.WithFields(log.Fields{
		"recipients": len(active),
		"delivered":  delivered,
		"failed":     failed,
	}).Info("Completed weekly broadcast")
}

func (w *BroadcastWorker) composeMessage(ctx context.Context) string {
	text := "Happy Monday! A new week of content is live in the group."

	stats, err := w.quizStats.QuizStats(ctx)
	if err != nil {
		log.Warnf("Skipping quiz stats in broadcast: %v", err)
		return text
	}
	if stats.WeeklyParticipants > 0 {
		text += fmt.Sprintf(
			"\n\nLast week %d members took a quiz, averaging %.0f%%. Can you beat that?",
			stats.WeeklyParticipants, stats.AverageScore)
	}
	return text
}
