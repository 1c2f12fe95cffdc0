package models

import (
	"time"
)

// Referral is an immutable referrer→referred edge, unique per ordered pair.
type Referral struct {
	ReferrerID int64     `db:"referrer_id"`
	ReferredID int64     `db:"referred_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// ReferralStats is derived at query time so it tracks live subscription state.
type ReferralStats struct {
	TotalReferrals  int
	ActiveReferrals int
	FreeDays        int
}
