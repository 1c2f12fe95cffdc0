package repository

import (
	"context"
	"fmt"

	"doorman/database"
	"doorman/models"
)

// AdminRepository implements the service.AdminRepository interface
type AdminRepository struct {
	q queryable
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{q: db.Pool}
}

// newAdminRepositoryWithTx creates a new admin repository with a transaction
func newAdminRepositoryWithTx(tx queryable) *AdminRepository {
	return &AdminRepository{q: tx}
}

// Add grants admin capability, ignoring duplicates
func (r *AdminRepository) Add(ctx context.Context, telegramID int64, fullName string) error {
	query := `
		INSERT INTO admins (telegram_id, full_name)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, telegramID, fullName); err != nil {
		return fmt.Errorf("failed to add admin %d: %w", telegramID, err)
	}
	return nil
}

// Remove revokes admin capability
func (r *AdminRepository) Remove(ctx context.Context, telegramID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM admins WHERE telegram_id = $1`, telegramID); err != nil {
		return fmt.Errorf("failed to remove admin %d: %w", telegramID, err)
	}
	return nil
}

// IsAdmin reports whether the user is on the roster
func (r *AdminRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE telegram_id = $1)`, telegramID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin %d: %w", telegramID, err)
	}
	return exists, nil
}

// All returns every admin, oldest grant first
func (r *AdminRepository) All(ctx context.Context) ([]*models.Admin, error) {
	rows, err := r.q.Query(ctx, `SELECT telegram_id, full_name, added_at FROM admins ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	var admins []*models.Admin
	for rows.Next() {
		var admin models.Admin
		if err := rows.Scan(&admin.TelegramID, &admin.FullName, &admin.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, &admin)
	}
	return admins, rows.Err()
}
