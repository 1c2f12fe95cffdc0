package models

import (
	"time"
)

// Admin is a user granted claim-review capability.
// The main-admin designation lives in bot_settings, not here.
type Admin struct {
	TelegramID int64     `db:"telegram_id"`
	FullName   string    `db:"full_name"`
	AddedAt    time.Time `db:"added_at"`
}
