package repository

import (
	"context"
	"testing"
	"time"

	"cardroom/domain/entities"
	"cardroom/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutRepository_CreateAndUpdate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPayoutRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "alice")

	payout := &entities.Payout{
		UserID:         user.ID,
		Amount:         5000,
		Destination:    "0xabc",
		IdempotencyKey: uuid.NewString(),
		State:          entities.PayoutStatePending,
	}
	require.NoError(t, repo.Create(ctx, payout))
	assert.NotZero(t, payout.ID)
	assert.False(t, payout.CreatedAt.IsZero())

	t.Run("duplicate idempotency key rejected", func(t *testing.T) {
		dup := &entities.Payout{
			UserID:         user.ID,
			Amount:         5000,
			Destination:    "0xabc",
			IdempotencyKey: payout.IdempotencyKey,
			State:          entities.PayoutStatePending,
		}
		assert.Error(t, repo.Create(ctx, dup))
	})

	t.Run("update persists state and references", func(t *testing.T) {
		ref := "tx-123"
		payout.State = entities.PayoutStateCompleted
		payout.ExternalRef = &ref
		require.NoError(t, repo.Update(ctx, payout))

		fetched, err := repo.GetByID(ctx, payout.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, entities.PayoutStateCompleted, fetched.State)
		require.NotNil(t, fetched.ExternalRef)
		assert.Equal(t, ref, *fetched.ExternalRef)
		assert.False(t, fetched.AwaitsConfirmation())
	})

	t.Run("missing payout returns nil", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, fetched)
	})
}

func TestPayoutRepository_ListAwaitingConfirmation(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPayoutRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "alice")

	pending := testutil.CreateTestPayout(t, testDB.DB, user.ID, 1000, entities.PayoutStatePending)
	sent := testutil.CreateTestPayout(t, testDB.DB, user.ID, 2000, entities.PayoutStateSent)
	testutil.CreateTestPayout(t, testDB.DB, user.ID, 3000, entities.PayoutStateCompleted)
	testutil.CreateTestPayout(t, testDB.DB, user.ID, 4000, entities.PayoutStateFailed)

	t.Run("only unresolved payouts before cutoff", func(t *testing.T) {
		payouts, err := repo.ListAwaitingConfirmation(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, payouts, 2)
		assert.Equal(t, pending.ID, payouts[0].ID)
		assert.Equal(t, sent.ID, payouts[1].ID)
	})

	t.Run("cutoff excludes recent payouts", func(t *testing.T) {
		payouts, err := repo.ListAwaitingConfirmation(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, payouts)
	})
}
