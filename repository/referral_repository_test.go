package repository

import (
	"context"
	"testing"
	"time"

	"doorman/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralRepository_Create_DuplicatePair(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewReferralRepository(testDB.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, 10, 20)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, 10, 20)
	require.NoError(t, err)
	assert.False(t, created)

	// The reverse edge is a distinct pair.
	created, err = repo.Create(ctx, 20, 10)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestReferralRepository_Stats_DerivedFromLiveState(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	repo := NewReferralRepository(testDB.DB)
	ctx := context.Background()

	end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 30)

	_, err := userRepo.Upsert(ctx, 20, "active", "Active Referred")
	require.NoError(t, err)
	require.NoError(t, userRepo.SetSubscription(ctx, 20, true, &end))

	_, err = userRepo.Upsert(ctx, 30, "lapsed", "Lapsed Referred")
	require.NoError(t, err)

	_, err = repo.Create(ctx, 10, 20)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 10, 30)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalReferrals)
	assert.Equal(t, 1, stats.ActiveReferrals)
	assert.Equal(t, 3, stats.FreeDays)

	// Credits follow the referred user's subscription state.
	require.NoError(t, userRepo.SetSubscription(ctx, 20, false, nil))

	stats, err = repo.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ActiveReferrals)
	assert.Equal(t, 0, stats.FreeDays)
}
