package models

import (
	"time"
)

// ClaimStatus is the state of a payment claim.
// pending → approved and pending → rejected are the only transitions.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// PaymentClaim is a user-submitted assertion of having paid, awaiting
// human review. A user may accumulate several pending claims; admins
// always act on the most recent one.
type PaymentClaim struct {
	ID         int64       `db:"id"`
	TelegramID int64       `db:"telegram_id"`
	Username   string      `db:"username"`
	FullName   string      `db:"full_name"`
	PlanName   string      `db:"plan_name"`
	Amount     string      `db:"amount"`
	Status     ClaimStatus `db:"status"`
	CreatedAt  time.Time   `db:"created_at"`
}

// Resolved reports whether the claim has reached a terminal state.
func (c *PaymentClaim) Resolved() bool {
	return c.Status != ClaimPending
}
