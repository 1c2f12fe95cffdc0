package repository

import (
	"context"
	"fmt"

	"doorman/database"
	"doorman/models"
)

// Free days credited per referred user holding a live subscription.
const freeDaysPerActiveReferral = 3

// ReferralRepository implements the service.ReferralRepository interface
type ReferralRepository struct {
	q queryable
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *database.DB) *ReferralRepository {
	return &ReferralRepository{q: db.Pool}
}

// newReferralRepositoryWithTx creates a new referral repository with a transaction
func newReferralRepositoryWithTx(tx queryable) *ReferralRepository {
	return &ReferralRepository{q: tx}
}

// Create records the edge once; returns false without error when the
// ordered pair already exists
func (r *ReferralRepository) Create(ctx context.Context, referrerID, referredID int64) (bool, error) {
	query := `
		INSERT INTO referrals (referrer_id, referred_id)
		VALUES ($1, $2)
		ON CONFLICT (referrer_id, referred_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, referrerID, referredID)
	if err != nil {
		return false, fmt.Errorf("failed to create referral %d->%d: %w", referrerID, referredID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Stats derives referral counts and earned free days from live subscription
// state. Nothing is stored; credits always track current reality.
func (r *ReferralRepository) Stats(ctx context.Context, referrerID int64) (*models.ReferralStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE u.has_subscription)
		FROM referrals r
		LEFT JOIN users u ON u.telegram_id = r.referred_id
		WHERE r.referrer_id = $1
	`

	var stats models.ReferralStats
	err := r.q.QueryRow(ctx, query, referrerID).Scan(&stats.TotalReferrals, &stats.ActiveReferrals)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats for %d: %w", referrerID, err)
	}
	stats.FreeDays = stats.ActiveReferrals * freeDaysPerActiveReferral
	return &stats, nil
}

// DeleteByUser removes all edges touching the user, on either side
func (r *ReferralRepository) DeleteByUser(ctx context.Context, telegramID int64) error {
	query := `DELETE FROM referrals WHERE referrer_id = $1 OR referred_id = $1`

	if _, err := r.q.Exec(ctx, query, telegramID); err != nil {
		return fmt.Errorf("failed to delete referrals for %d: %w", telegramID, err)
	}
	return nil
}
