package interfaces

import (
	"context"

	"cardroom/domain/entities"
)

// PaymentGateway wraps the external payment provider. It is unreliable: Send
// may time out or accept without settling, and a transport error is an
// ambiguous outcome, never a failure. VerifyStatus is the authoritative
// resolution for ambiguous transfers.
type PaymentGateway interface {
	// Send submits an outbound transfer. The idempotency key in the request
	// guarantees at-most-once external effect across retries.
	Send(ctx context.Context, req entities.SendRequest) (*entities.SendResult, error)

	// VerifyStatus returns the gateway's authoritative status for a transfer,
	// looked up by gateway reference or idempotency key.
	VerifyStatus(ctx context.Context, reference string) (entities.PaymentStatus, error)
}
