package entities

import (
	"errors"
	"time"
)

// User represents a registered player with a custodial USDC balance.
// Balance is a materialized cache over the ledger; the ledger is the source
// of truth and the two are reconciled by the periodic audit.
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`

	// Balance is the cached sum of the user's ledger entries, in USDC cents.
	Balance int64 `db:"balance"`
	// AvailableBalance is Balance minus payouts still awaiting gateway
	// confirmation. Debit checks use this so an in-flight withdrawal cannot
	// be double-spent.
	AvailableBalance int64 `db:"-"`

	GamesPlayed       int `db:"games_played"`
	GamesWon          int `db:"games_won"`
	TournamentsPlayed int `db:"tournaments_played"`
	TournamentsWon    int `db:"tournaments_won"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CanAfford checks if the user has sufficient available balance for a debit
func (u *User) CanAfford(amount int64) bool {
	return u.AvailableBalance >= amount
}

// ValidateDebit checks that an amount is positive and affordable
func (u *User) ValidateDebit(amount int64) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !u.CanAfford(amount) {
		return &InsufficientFundsError{
			UserID:    u.ID,
			Username:  u.Username,
			Available: u.AvailableBalance,
			Required:  amount,
		}
	}
	return nil
}

// PendingAmount is the portion of the balance held by in-flight payouts
func (u *User) PendingAmount() int64 {
	return u.Balance - u.AvailableBalance
}
