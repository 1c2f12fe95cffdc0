package repository

import (
	"context"
	"fmt"

	"doorman/database"
	"doorman/models"
)

// QuizResultRepository implements the service.QuizResultRepository interface
type QuizResultRepository struct {
	q queryable
}

// NewQuizResultRepository creates a new quiz result repository
func NewQuizResultRepository(db *database.DB) *QuizResultRepository {
	return &QuizResultRepository{q: db.Pool}
}

// newQuizResultRepositoryWithTx creates a new quiz result repository with a transaction
func newQuizResultRepositoryWithTx(tx queryable) *QuizResultRepository {
	return &QuizResultRepository{q: tx}
}

// Save records a completed attempt
func (r *QuizResultRepository) Save(ctx context.Context, result *models.QuizResult) error {
	query := `
		INSERT INTO quiz_results (telegram_id, quiz_id, score, total_questions)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		result.TelegramID,
		result.QuizID,
		result.Score,
		result.TotalQuestions,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}
	return nil
}

// ByUser returns a user's results, newest first
func (r *QuizResultRepository) ByUser(ctx context.Context, telegramID int64) ([]*models.QuizResult, error) {
	query := `
		SELECT id, telegram_id, quiz_id, score, total_questions, created_at
		FROM quiz_results
		WHERE telegram_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz results for %d: %w", telegramID, err)
	}
	defer rows.Close()

	var results []*models.QuizResult
	for rows.Next() {
		var result models.QuizResult
		err := rows.Scan(
			&result.ID,
			&result.TelegramID,
			&result.QuizID,
			&result.Score,
			&result.TotalQuestions,
			&result.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz result: %w", err)
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// HasCompleted reports whether the user already finished a quiz
func (r *QuizResultRepository) HasCompleted(ctx context.Context, telegramID int64, quizID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM quiz_results WHERE telegram_id = $1 AND quiz_id = $2)`
	if err := r.q.QueryRow(ctx, query, telegramID, quizID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check quiz completion for %d: %w", telegramID, err)
	}
	return exists, nil
}

// Stats returns the aggregate quiz snapshot for the admin panel
func (r *QuizResultRepository) Stats(ctx context.Context) (*models.QuizStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(score * 100.0 / NULLIF(total_questions, 0)), 0),
			COUNT(DISTINCT telegram_id) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days')
		FROM quiz_results
	`

	var stats models.QuizStats
	err := r.q.QueryRow(ctx, query).Scan(
		&stats.TotalAttempts,
		&stats.AverageScore,
		&stats.WeeklyParticipants,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return &stats, nil
}

// DeleteByUser removes all results for a user
func (r *QuizResultRepository) DeleteByUser(ctx context.Context, telegramID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM quiz_results WHERE telegram_id = $1`, telegramID); err != nil {
		return fmt.Errorf("failed to delete quiz results for %d: %w", telegramID, err)
	}
	return nil
}
