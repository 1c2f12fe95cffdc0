package models

import (
	"time"
)

// User represents a Telegram user known to the bot.
// SubscriptionEnd is nil for users that were never granted a subscription.
type User struct {
	TelegramID      int64      `db:"telegram_id"`
	Username        string     `db:"username"`
	FullName        string     `db:"full_name"`
	HasSubscription bool       `db:"has_subscription"`
	SubscriptionEnd *time.Time `db:"subscription_end"`
	JoinedAt        time.Time  `db:"joined_at"`
	LastActiveAt    time.Time  `db:"last_active_at"`
}

// UserStats is the aggregate snapshot shown on the admin panel.
type UserStats struct {
	TotalUsers        int
	ActiveSubscribers int
	NewThisWeek       int
	PendingClaims     int
}
