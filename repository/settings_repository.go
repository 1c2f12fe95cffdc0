package repository

import (
	"context"
	"fmt"

	"doorman/database"

	"github.com/jackc/pgx/v5"
)

// SettingRepository implements the service.SettingRepository interface over
// the bot_settings key/value table.
type SettingRepository struct {
	q queryable
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(db *database.DB) *SettingRepository {
	return &SettingRepository{q: db.Pool}
}

// newSettingRepositoryWithTx creates a new setting repository with a transaction
func newSettingRepositoryWithTx(tx queryable) *SettingRepository {
	return &SettingRepository{q: tx}
}

// Set upserts a key
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO bot_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// Get returns the value for a key, or "" when unset
func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.q.QueryRow(ctx, `SELECT value FROM bot_settings WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}
