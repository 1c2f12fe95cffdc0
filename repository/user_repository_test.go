package repository

import (
	"context"
	"testing"
	"time"

	"doorman/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Upsert(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("insert on first contact", func(t *testing.T) {
		user, err := repo.Upsert(ctx, 100, "alice", "Alice A")
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, int64(100), user.TelegramID)
		assert.Equal(t, "alice", user.Username)
		assert.False(t, user.HasSubscription)
		assert.Nil(t, user.SubscriptionEnd)
	})

	t.Run("refresh does not touch subscription", func(t *testing.T) {
		end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 30)
		require.NoError(t, repo.SetSubscription(ctx, 100, true, &end))

		user, err := repo.Upsert(ctx, 100, "alice_new", "Alice B")
		require.NoError(t, err)

		assert.Equal(t, "alice_new", user.Username)
		assert.Equal(t, "Alice B", user.FullName)
		assert.True(t, user.HasSubscription)
		require.NotNil(t, user.SubscriptionEnd)
	})
}

func TestUserRepository_SetSubscription_UnknownUser(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	err := repo.SetSubscription(ctx, 999, true, nil)
	assert.Error(t, err)
}

func TestUserRepository_ExpireOverdue(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	past := today.AddDate(0, 0, -2)
	future := today.AddDate(0, 0, 10)

	_, err := repo.Upsert(ctx, 1, "overdue", "Overdue User")
	require.NoError(t, err)
	require.NoError(t, repo.SetSubscription(ctx, 1, true, &past))

	_, err = repo.Upsert(ctx, 2, "current", "Current User")
	require.NoError(t, err)
	require.NoError(t, repo.SetSubscription(ctx, 2, true, &future))

	expired, err := repo.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(1), expired[0].TelegramID)

	// The crossing is observed exactly once.
	expired, err = repo.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	user, err := repo.GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, user.HasSubscription)

	user, err = repo.GetByTelegramID(ctx, 2)
	require.NoError(t, err)
	assert.True(t, user.HasSubscription)
}

func TestUserRepository_ExpiringWithin(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedUsers(t, testDB.DB,
		testutil.CreateTestSubscriber(1, "soon", 2),
		testutil.CreateTestSubscriber(2, "later", 30),
	)

	expiring, err := repo.ExpiringWithin(ctx, 3)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, int64(1), expiring[0].TelegramID)
}

func TestUserRepository_CountStats(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedUsers(t, testDB.DB,
		testutil.CreateTestSubscriber(1, "active", 30),
		testutil.CreateTestUser(2, "guest"),
	)

	stats, err := repo.CountStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActiveSubscribers)
	assert.Equal(t, 2, stats.NewThisWeek)
	assert.Equal(t, 0, stats.PendingClaims)
}
