package testutil

import (
	"context"
	"testing"
	"time"

	"doorman/database"
	"doorman/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(telegramID int64, username string) *models.User {
	now := time.Now()
	return &models.User{
		TelegramID:   telegramID,
		Username:     username,
		FullName:     "Test " + username,
		JoinedAt:     now,
		LastActiveAt: now,
	}
}

// CreateTestSubscriber creates a test user with an active subscription
// ending the given number of days from today.
func CreateTestSubscriber(telegramID int64, username string, daysLeft int) *models.User {
	user := CreateTestUser(telegramID, username)
	end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, daysLeft)
	user.HasSubscription = true
	user.SubscriptionEnd = &end
	return user
}

// CreateTestClaim creates a pending payment claim
func CreateTestClaim(telegramID int64, planName string) *models.PaymentClaim {
	return &models.PaymentClaim{
		TelegramID: telegramID,
		Username:   "claimant",
		FullName:   "Test Claimant",
		PlanName:   planName,
		Amount:     "1500 DZD",
		Status:     models.ClaimPending,
	}
}

// SeedUsers inserts the given users atomically so a failed fixture never
// leaves a test database half seeded.
func SeedUsers(t *testing.T, db *database.DB, users ...*models.User) {
	t.Helper()
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, u := range users {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (telegram_id, username, full_name, has_subscription, subscription_end, joined_at, last_active_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				u.TelegramID, u.Username, u.FullName, u.HasSubscription, u.SubscriptionEnd, u.JoinedAt, u.LastActiveAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// CreateTestQuizResult creates a quiz result attempt
func CreateTestQuizResult(telegramID int64, quizID, score, total int) *models.QuizResult {
	return &models.QuizResult{
		TelegramID:     telegramID,
		QuizID:         quizID,
		Score:          score,
		TotalQuestions: total,
	}
}
