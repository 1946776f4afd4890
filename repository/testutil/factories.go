package testutil

import (
	"context"
	"testing"

	"cardroom/database"
	"cardroom/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// CreateTestUser inserts a user directly and returns the row
func CreateTestUser(t *testing.T, db *database.DB, username string) *entities.User {
	var user entities.User
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, balance, created_at, updated_at
	`, username, "x").Scan(&user.ID, &user.Username, &user.Balance, &user.CreatedAt, &user.UpdatedAt)
	require.NoError(t, err)
	return &user
}

// FundTestUser gives a user balance via a deposit ledger entry plus the
// matching cached-balance update, keeping the audit invariant intact
func FundTestUser(t *testing.T, db *database.DB, userID, cents int64) {
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO ledger_entries (user_id, amount, entry_type)
		VALUES ($1, $2, 'deposit')
	`, userID, cents)
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx, `
		UPDATE users SET balance = balance + $1 WHERE id = $2
	`, cents, userID)
	require.NoError(t, err)
}

// CreateTestPayout inserts a payout in the given state
func CreateTestPayout(t *testing.T, db *database.DB, userID, amount int64, state entities.PayoutState) *entities.Payout {
	payout := &entities.Payout{
		UserID:         userID,
		Amount:         amount,
		Destination:    "0xtest",
		IdempotencyKey: uuid.NewString(),
		State:          state,
	}
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO payouts (user_id, amount, destination, idempotency_key, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, payout.UserID, payout.Amount, payout.Destination, payout.IdempotencyKey, payout.State).
		Scan(&payout.ID, &payout.CreatedAt, &payout.UpdatedAt)
	require.NoError(t, err)
	return payout
}
