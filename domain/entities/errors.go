package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy shared across services.
// Callers match with errors.Is; layers wrap with %w.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("operation not valid for current state")
	ErrDuplicateUser      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWinnerNotMember    = errors.New("winner is not an active member")
	ErrAlreadySettled     = errors.New("already settled")
	ErrNoActivePlayers    = errors.New("no active players remain")
)

// InsufficientFundsError identifies the account that could not cover a debit.
type InsufficientFundsError struct {
	UserID    int64
	Username  string
	Available int64
	Required  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %s: have %d, need %d",
		e.Username, e.Available, e.Required)
}

// PaymentFailedError carries the gateway's rejection message. The ledger is
// untouched when this is returned.
type PaymentFailedError struct {
	Message string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Message)
}

// PaymentAmbiguousError means the gateway call neither succeeded nor failed
// definitively (timeout, transport error after send). The payout stays queued
// for reconciliation; it must not be resolved to success or failure locally.
type PaymentAmbiguousError struct {
	Reference string
}

func (e *PaymentAmbiguousError) Error() string {
	return fmt.Sprintf("payment outcome unknown, queued for reconciliation (ref %s)", e.Reference)
}
