package repository

import (
	"context"
	"testing"

	"cardroom/domain/entities"
	"cardroom/domain/utils"
	"cardroom/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_RecordAndSum(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "alice")

	t.Run("empty ledger sums to zero", func(t *testing.T) {
		sum, err := repo.SumByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), sum)
	})

	t.Run("record populates id and timestamp", func(t *testing.T) {
		entry := &entities.LedgerEntry{
			UserID: user.ID,
			Amount: 2000,
			Type:   entities.EntryTypeDeposit,
		}
		require.NoError(t, repo.Record(ctx, entry))
		assert.NotZero(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	})

	t.Run("cents arithmetic is exact", func(t *testing.T) {
		// 9.94 + 0.03 + 0.03 in floating point drifts; in cents it cannot
		for _, amount := range []string{"9.94", "0.03", "0.03"} {
			cents, err := utils.ParseUSDC(amount)
			require.NoError(t, err)
			entry := &entities.LedgerEntry{
				UserID: user.ID,
				Amount: cents,
				Type:   entities.EntryTypeDeposit,
			}
			require.NoError(t, repo.Record(ctx, entry))
		}

		sum, err := repo.SumByUser(ctx, user.ID)
		require.NoError(t, err)
		// 20.00 deposit from the previous subtest plus exactly 10.00
		assert.Equal(t, int64(3000), sum)
		assert.Equal(t, "30.00", utils.FormatUSDC(sum))
	})

	t.Run("entries come back newest first with related fields", func(t *testing.T) {
		relatedID := int64(42)
		relatedType := entities.RelatedTypeTable
		entry := &entities.LedgerEntry{
			UserID:      user.ID,
			Amount:      -3,
			Type:        entities.EntryTypeGameFee,
			RelatedID:   &relatedID,
			RelatedType: &relatedType,
		}
		require.NoError(t, repo.Record(ctx, entry))

		entries, err := repo.GetByUser(ctx, user.ID, 10)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		newest := entries[0]
		assert.Equal(t, entities.EntryTypeGameFee, newest.Type)
		require.NotNil(t, newest.RelatedID)
		assert.Equal(t, relatedID, *newest.RelatedID)
		require.NotNil(t, newest.RelatedType)
		assert.Equal(t, relatedType, *newest.RelatedType)
	})
}

func TestLedgerRepository_DepositRefExists(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "alice")

	t.Run("unknown reference", func(t *testing.T) {
		exists, err := repo.DepositRefExists(ctx, "pay-1")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("reference visible after a funded deposit", func(t *testing.T) {
		ref := "pay-1"
		require.NoError(t, repo.Record(ctx, &entities.LedgerEntry{
			UserID:      user.ID,
			Amount:      2000,
			Type:        entities.EntryTypeDeposit,
			ExternalRef: &ref,
		}))

		exists, err := repo.DepositRefExists(ctx, "pay-1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("replaying a deposit reference is rejected at the database", func(t *testing.T) {
		ref := "pay-1"
		err := repo.Record(ctx, &entities.LedgerEntry{
			UserID:      user.ID,
			Amount:      2000,
			Type:        entities.EntryTypeDeposit,
			ExternalRef: &ref,
		})
		assert.Error(t, err)
	})

	t.Run("non-deposit entries may share a reference", func(t *testing.T) {
		ref := "pay-1"
		require.NoError(t, repo.Record(ctx, &entities.LedgerEntry{
			UserID:      user.ID,
			Amount:      -2000,
			Type:        entities.EntryTypeWithdraw,
			ExternalRef: &ref,
		}))
	})
}

func TestLedgerRepository_SumAll(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	a := testutil.CreateTestUser(t, testDB.DB, "a")
	b := testutil.CreateTestUser(t, testDB.DB, "b")
	c := testutil.CreateTestUser(t, testDB.DB, "c")

	for _, e := range []*entities.LedgerEntry{
		{UserID: a.ID, Amount: 1000, Type: entities.EntryTypeDeposit},
		{UserID: a.ID, Amount: -100, Type: entities.EntryTypeTournamentFee},
		{UserID: b.ID, Amount: 500, Type: entities.EntryTypeDeposit},
	} {
		require.NoError(t, repo.Record(ctx, e))
	}

	sums, err := repo.SumAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), sums[a.ID])
	assert.Equal(t, int64(500), sums[b.ID])
	_, present := sums[c.ID]
	assert.False(t, present)
}
