package repository

import (
	"context"
	"fmt"
	"time"

	"doorman/database"
	"doorman/models"

	"github.com/jackc/pgx/v5"
)

const claimColumns = `id, telegram_id, username, full_name, plan_name, amount, status, created_at`

// ClaimRepository implements the service.ClaimRepository interface
type ClaimRepository struct {
	q queryable
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *database.DB) *ClaimRepository {
	return &ClaimRepository{q: db.Pool}
}

// newClaimRepositoryWithTx creates a new claim repository with a transaction
func newClaimRepositoryWithTx(tx queryable) *ClaimRepository {
	return &ClaimRepository{q: tx}
}

func scanClaim(row pgx.Row) (*models.PaymentClaim, error) {
	var claim models.PaymentClaim
	err := row.Scan(
		&claim.ID,
		&claim.TelegramID,
		&claim.Username,
		&claim.FullName,
		&claim.PlanName,
		&claim.Amount,
		&claim.Status,
		&claim.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func collectClaims(rows pgx.Rows) ([]*models.PaymentClaim, error) {
	defer rows.Close()

	var claims []*models.PaymentClaim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// Create inserts a new pending claim and fills its ID and timestamp
func (r *ClaimRepository) Create(ctx context.Context, claim *models.PaymentClaim) error {
	query := `
		INSERT INTO payment_claims (telegram_id, username, full_name, plan_name, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		claim.TelegramID,
		claim.Username,
		claim.FullName,
		claim.PlanName,
		claim.Amount,
		claim.Status,
	).Scan(&claim.ID, &claim.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment claim: %w", err)
	}
	return nil
}

// LatestPending returns the most recent pending claim for a user, or nil
// when none exists
func (r *ClaimRepository) LatestPending(ctx context.Context, telegramID int64) (*models.PaymentClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM payment_claims
		WHERE telegram_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`

	claim, err := scanClaim(r.q.QueryRow(ctx, query, telegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending claim for %d: %w", telegramID, err)
	}
	return claim, nil
}

// Resolve transitions a specific claim out of pending. The status guard in
// the WHERE clause makes resolution idempotent: a claim already terminal is
// reported as not-resolved, its first outcome stands.
func (r *ClaimRepository) Resolve(ctx context.Context, claimID int64, status models.ClaimStatus) (bool, error) {
	query := `UPDATE payment_claims SET status = $2 WHERE id = $1 AND status = 'pending'`

	tag, err := r.q.Exec(ctx, query, claimID, status)
	if err != nil {
		return false, fmt.Errorf("failed to resolve claim %d: %w", claimID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Pending returns all pending claims, newest first
func (r *ClaimRepository) Pending(ctx context.Context) ([]*models.PaymentClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM payment_claims
		WHERE status = 'pending'
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending claims: %w", err)
	}
	return collectClaims(rows)
}

// History returns resolved claims, newest first
func (r *ClaimRepository) History(ctx context.Context, limit int) ([]*models.PaymentClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM payment_claims
		WHERE status <> 'pending'
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim history: %w", err)
	}
	return collectClaims(rows)
}

// UserHistory returns all claims for a user, newest first
func (r *ClaimRepository) UserHistory(ctx context.Context, telegramID int64) ([]*models.PaymentClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM payment_claims
		WHERE telegram_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims for %d: %w", telegramID, err)
	}
	return collectClaims(rows)
}

// DeleteResolvedBefore prunes resolved claims older than the cutoff.
// Pending claims are never deleted.
func (r *ClaimRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM payment_claims WHERE status <> 'pending' AND created_at < $1`

	tag, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete resolved claims: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByUser removes all claims for a user
func (r *ClaimRepository) DeleteByUser(ctx context.Context, telegramID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM payment_claims WHERE telegram_id = $1`, telegramID); err != nil {
		return fmt.Errorf("failed to delete claims for %d: %w", telegramID, err)
	}
	return nil
}
