package repository

import (
	"context"
	"testing"

	"cardroom/domain/entities"
	"cardroom/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("missing user returns nil", func(t *testing.T) {
		user, err := repo.GetByID(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, user)

		user, err = repo.GetByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create starts at zero balance", func(t *testing.T) {
		user, err := repo.Create(ctx, "alice", "hash")
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, int64(0), user.Balance)
		assert.Equal(t, int64(0), user.AvailableBalance)
		assert.Equal(t, 0, user.GamesPlayed)
		assert.False(t, user.CreatedAt.IsZero())

		fetched, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, user.ID, fetched.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.Create(ctx, "alice", "otherhash")
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrDuplicateUser)
	})
}

func TestUserRepository_AvailableBalance(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "bob")
	testutil.FundTestUser(t, testDB.DB, user.ID, 10000)

	t.Run("no in-flight payouts", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), fetched.Balance)
		assert.Equal(t, int64(10000), fetched.AvailableBalance)
	})

	t.Run("pending and sent payouts reserve balance", func(t *testing.T) {
		testutil.CreateTestPayout(t, testDB.DB, user.ID, 3000, entities.PayoutStatePending)
		testutil.CreateTestPayout(t, testDB.DB, user.ID, 2000, entities.PayoutStateSent)

		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), fetched.Balance)
		assert.Equal(t, int64(5000), fetched.AvailableBalance)
	})

	t.Run("completed and failed payouts do not reserve", func(t *testing.T) {
		testutil.CreateTestPayout(t, testDB.DB, user.ID, 4000, entities.PayoutStateCompleted)
		testutil.CreateTestPayout(t, testDB.DB, user.ID, 4000, entities.PayoutStateFailed)

		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), fetched.AvailableBalance)
	})
}

func TestUserRepository_Counters(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	u1 := testutil.CreateTestUser(t, testDB.DB, "carol")
	u2 := testutil.CreateTestUser(t, testDB.DB, "dave")

	require.NoError(t, repo.IncrementGamesPlayed(ctx, []int64{u1.ID, u2.ID}))
	require.NoError(t, repo.IncrementGamesWon(ctx, u1.ID))
	require.NoError(t, repo.IncrementTournamentsPlayed(ctx, u2.ID))
	require.NoError(t, repo.IncrementTournamentsWon(ctx, u2.ID))

	fetched1, err := repo.GetByID(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched1.GamesPlayed)
	assert.Equal(t, 1, fetched1.GamesWon)

	fetched2, err := repo.GetByID(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched2.GamesPlayed)
	assert.Equal(t, 0, fetched2.GamesWon)
	assert.Equal(t, 1, fetched2.TournamentsPlayed)
	assert.Equal(t, 1, fetched2.TournamentsWon)

	t.Run("increment unknown user", func(t *testing.T) {
		err := repo.IncrementGamesWon(ctx, 9999)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestUserRepository_GetAllOrdersByBalance(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	poor := testutil.CreateTestUser(t, testDB.DB, "poor")
	rich := testutil.CreateTestUser(t, testDB.DB, "rich")
	mid := testutil.CreateTestUser(t, testDB.DB, "mid")
	testutil.FundTestUser(t, testDB.DB, rich.ID, 50000)
	testutil.FundTestUser(t, testDB.DB, mid.ID, 20000)

	users, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, rich.ID, users[0].ID)
	assert.Equal(t, mid.ID, users[1].ID)
	assert.Equal(t, poor.ID, users[2].ID)
}
