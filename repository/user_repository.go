package repository

import (
	"context"
	"fmt"
	"time"

	"doorman/database"
	"doorman/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx so repositories
// work inside and outside a unit of work.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const userColumns = `telegram_id, username, full_name, has_subscription, subscription_end, joined_at, last_active_at`

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.FullName,
		&user.HasSubscription,
		&user.SubscriptionEnd,
		&user.JoinedAt,
		&user.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func collectUsers(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetByTelegramID retrieves a user by their Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID %d: %w", telegramID, err)
	}
	return user, nil
}

// Upsert inserts a user on first contact or refreshes handle, display name
// and last-active timestamp. Subscription fields are never written here.
func (r *UserRepository) Upsert(ctx context.Context, telegramID int64, username, fullName string) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			last_active_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID, username, fullName))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %d: %w", telegramID, err)
	}
	return user, nil
}

// SetSubscription writes the subscription flag and end date directly
func (r *UserRepository) SetSubscription(ctx context.Context, telegramID int64, active bool, end *time.Time) error {
	query := `UPDATE users SET has_subscription = $2, subscription_end = $3 WHERE telegram_id = $1`

	tag, err := r.q.Exec(ctx, query, telegramID, active, end)
	if err != nil {
		return fmt.Errorf("failed to set subscription for %d: %w", telegramID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no user with telegram ID %d", telegramID)
	}
	return nil
}

// AllActive returns every user with an active subscription
func (r *UserRepository) AllActive(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE has_subscription ORDER BY subscription_end`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	return collectUsers(rows)
}

// ExpiringWithin returns active users whose subscription ends on or before
// today+days, soonest first
func (r *UserRepository) ExpiringWithin(ctx context.Context, days int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE has_subscription
		  AND subscription_end IS NOT NULL
		  AND subscription_end <= CURRENT_DATE + $1
		ORDER BY subscription_end
	`

	rows, err := r.q.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring users: %w", err)
	}
	return collectUsers(rows)
}

// ExpireOverdue flips has_subscription off for every user whose end date has
// passed, returning the affected users. A user crosses the boundary exactly
// once: subsequent calls see has_subscription already false.
func (r *UserRepository) ExpireOverdue(ctx context.Context) ([]*models.User, error) {
	query := `
		UPDATE users
		SET has_subscription = FALSE
		WHERE has_subscription
		  AND subscription_end IS NOT NULL
		  AND subscription_end < CURRENT_DATE
		RETURNING ` + userColumns

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue subscriptions: %w", err)
	}
	return collectUsers(rows)
}

// Recent returns the most recently joined users
func (r *UserRepository) Recent(ctx context.Context, limit int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY joined_at DESC LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent users: %w", err)
	}
	return collectUsers(rows)
}

// CountStats returns the aggregate user snapshot for the admin panel
func (r *UserRepository) CountStats(ctx context.Context) (*models.UserStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE has_subscription),
			(SELECT COUNT(*) FROM users WHERE joined_at >= NOW() - INTERVAL '7 days'),
			(SELECT COUNT(*) FROM payment_claims WHERE status = 'pending')
	`

	var stats models.UserStats
	err := r.q.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.ActiveSubscribers,
		&stats.NewThisWeek,
		&stats.PendingClaims,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count user stats: %w", err)
	}
	return &stats, nil
}

// Delete removes the user row. Dependent rows are removed by the caller or
// by FK cascade.
func (r *UserRepository) Delete(ctx context.Context, telegramID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM users WHERE telegram_id = $1`, telegramID); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", telegramID, err)
	}
	return nil
}
