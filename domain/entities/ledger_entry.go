package entities

import (
	"errors"
	"time"
)

// EntryType represents the kind of balance-affecting event
type EntryType string

// All ledger entry types supported by the system
const (
	EntryTypeRegistrationFee EntryType = "registration_fee"
	EntryTypeGameFee         EntryType = "game_fee"
	EntryTypeGameWin         EntryType = "game_win"
	EntryTypeTournamentFee   EntryType = "tournament_fee"
	EntryTypeTournamentWin   EntryType = "tournament_win"
	EntryTypeDeposit         EntryType = "deposit"
	EntryTypeWithdraw        EntryType = "withdraw"
)

// RelatedType says what entity a ledger entry's RelatedID points at
type RelatedType string

const (
	RelatedTypeTable      RelatedType = "table"
	RelatedTypeTournament RelatedType = "tournament"
	RelatedTypePayout     RelatedType = "payout"
)

// IsWinType returns true if the entry type represents a prize credit
func (et EntryType) IsWinType() bool {
	return et == EntryTypeGameWin || et == EntryTypeTournamentWin
}

// IsFeeType returns true if the entry type represents a fee debit
func (et EntryType) IsFeeType() bool {
	return et == EntryTypeRegistrationFee ||
		et == EntryTypeGameFee ||
		et == EntryTypeTournamentFee
}

// IsExternal returns true if the entry type moves money across the custodial
// boundary and therefore carries a payment-gateway reference
func (et EntryType) IsExternal() bool {
	return et == EntryTypeDeposit || et == EntryTypeWithdraw
}

// String returns the string representation of the entry type
func (et EntryType) String() string {
	return string(et)
}

// LedgerEntry is one append-only balance-affecting event. Amounts are signed
// USDC cents: negative = debit, positive = credit. Entries are immutable once
// recorded; corrections are new compensating entries.
type LedgerEntry struct {
	ID          int64        `db:"id"`
	UserID      int64        `db:"user_id"`
	Amount      int64        `db:"amount"`
	Type        EntryType    `db:"entry_type"`
	ExternalRef *string      `db:"external_ref"`
	RelatedID   *int64       `db:"related_id"`
	RelatedType *RelatedType `db:"related_type"`
	CreatedAt   time.Time    `db:"created_at"`
}

// IsDebit returns true if the entry reduces the balance
func (e *LedgerEntry) IsDebit() bool {
	return e.Amount < 0
}

// IsCredit returns true if the entry increases the balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount > 0
}

// Validate performs basic validation on the entry
func (e *LedgerEntry) Validate() error {
	if e.Amount == 0 {
		return errors.New("ledger entry amount cannot be zero")
	}
	if e.Type == "" {
		return errors.New("ledger entry type is required")
	}
	return nil
}

// BalanceChange describes a ledger effect before it is recorded. The ledger
// service turns it into a LedgerEntry plus a cached-balance update within the
// current unit of work.
type BalanceChange struct {
	UserID      int64
	Amount      int64
	Type        EntryType
	ExternalRef *string
	RelatedID   *int64
	RelatedType *RelatedType
}
