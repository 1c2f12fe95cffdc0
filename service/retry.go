package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	deliveryAttempts = 3
	deliveryBackoff  = time.Second
)

// Notify sends a message with bounded exponential backoff on transient
// failures. Permanent failures (recipient blocked the bot) abandon
// immediately. Returns the delivered message id alongside the outcome.
func Notify(ctx context.Context, m Messenger, chatID int64, text string) (int, DeliveryResult) {
	var lastErr error
	for attempt := 0; attempt < deliveryAttempts; attempt++ {
		if attempt > 0 {
			backoff := deliveryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return 0, TransientFailure
			case <-time.After(backoff):
			}
		}

		messageID, err := m.SendMessage(ctx, chatID, text)
		if err == nil {
			return messageID, Delivered
		}
		if errors.Is(err, ErrRecipientUnreachable) {
			log.Warnf("Recipient %d unreachable, not retrying: %v", chatID, err)
			return 0, PermanentFailure
		}
		lastErr = err
		log.Warnf("Delivery to %d failed (attempt %d/%d): %v", chatID, attempt+1, deliveryAttempts, err)
	}

	log.Errorf("Abandoning delivery to %d after %d attempts: %v", chatID, deliveryAttempts, lastErr)
	return 0, TransientFailure
}
