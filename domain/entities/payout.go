package entities

import "time"

// PayoutState tracks an outbound transfer through the external gateway.
//
//	pending   created, no gateway attempt committed yet
//	sent      gateway attempt made, outcome unknown (awaiting reconciliation)
//	completed gateway confirmed, ledger debited
//	failed    gateway rejected or confirmed failed, ledger untouched
type PayoutState string

const (
	PayoutStatePending   PayoutState = "pending"
	PayoutStateSent      PayoutState = "sent"
	PayoutStateCompleted PayoutState = "completed"
	PayoutStateFailed    PayoutState = "failed"
)

// Payout is the durable handle for one logical withdrawal. The idempotency
// key is generated once at creation so a retried send against a flaky gateway
// can never produce a second external transfer.
type Payout struct {
	ID             int64       `db:"id"`
	UserID         int64       `db:"user_id"`
	Amount         int64       `db:"amount"`
	Destination    string      `db:"destination"`
	IdempotencyKey string      `db:"idempotency_key"`
	State          PayoutState `db:"state"`
	ExternalRef    *string     `db:"external_ref"`
	FailureReason  *string     `db:"failure_reason"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// AwaitsConfirmation reports whether the payout still needs a definitive
// gateway outcome. Such payouts reserve balance and are owned by the
// reconciliation loop.
func (p *Payout) AwaitsConfirmation() bool {
	return p.State == PayoutStatePending || p.State == PayoutStateSent
}

// StatusReference is the identifier used to query the gateway for this
// payout's status: the gateway-issued reference when one was received, the
// idempotency key otherwise (a send that timed out before any response).
func (p *Payout) StatusReference() string {
	if p.ExternalRef != nil && *p.ExternalRef != "" {
		return *p.ExternalRef
	}
	return p.IdempotencyKey
}

// PaymentStatus is the gateway's authoritative view of a transfer
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// SendRequest is one outbound transfer attempt
type SendRequest struct {
	Amount         int64
	Destination    string
	IdempotencyKey string
}

// SendResult is the gateway's synchronous answer to a send
type SendResult struct {
	Accepted  bool
	Reference string
	Message   string
}
