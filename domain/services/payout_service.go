package services

import (
	"context"
	"fmt"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// PayoutService coordinates outbound transfers with the external gateway.
// Unlike the transaction-scoped services it owns its units of work, because a
// withdrawal deliberately spans two transactions with unbounded gateway I/O
// in between: reserve first, debit only after the gateway confirms.
type PayoutService struct {
	uowFactory  interfaces.UnitOfWorkFactory
	gateway     interfaces.PaymentGateway
	sendTimeout time.Duration
}

// NewPayoutService creates a new payout service
func NewPayoutService(uowFactory interfaces.UnitOfWorkFactory, gateway interfaces.PaymentGateway, sendTimeout time.Duration) *PayoutService {
	return &PayoutService{
		uowFactory:  uowFactory,
		gateway:     gateway,
		sendTimeout: sendTimeout,
	}
}

// Withdraw sends amount to destination through the gateway.
//
// Transaction 1 row-locks the user, validates the amount against the
// available balance (no gateway call happens on insufficient funds) and
// commits a pending payout whose uuid is the idempotency key for every
// gateway attempt. The gateway send then runs outside any transaction with a
// bounded timeout. Transaction 2 applies the outcome: acceptance records the
// withdraw debit, rejection marks the payout failed, and a timeout or
// transport error leaves the payout for reconciliation -- the balance is
// untouched until the gateway's answer is definitive.
func (s *PayoutService) Withdraw(ctx context.Context, userID, amount int64, destination string) (*entities.Payout, error) {
	if destination == "" {
		return nil, fmt.Errorf("destination is required")
	}

	payout, err := s.reserve(ctx, userID, amount, destination)
	if err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	result, sendErr := s.gateway.Send(sendCtx, entities.SendRequest{
		Amount:         amount,
		Destination:    destination,
		IdempotencyKey: payout.IdempotencyKey,
	})

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	locked, err := uow.Payouts().GetByIDForUpdate(ctx, payout.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	if locked == nil {
		return nil, fmt.Errorf("payout %d: %w", payout.ID, entities.ErrNotFound)
	}

	switch {
	case sendErr != nil:
		// Ambiguous: the transfer may or may not have gone through.
		// Reconciliation resolves it via the gateway's status endpoint.
		log.WithError(sendErr).WithField("payoutID", locked.ID).
			Warn("Gateway send outcome unknown, queuing payout for reconciliation")
		if err := s.transition(ctx, uow, locked, entities.PayoutStateSent); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return locked, &entities.PaymentAmbiguousError{Reference: locked.StatusReference()}

	case !result.Accepted:
		reason := result.Message
		locked.FailureReason = &reason
		if err := s.transition(ctx, uow, locked, entities.PayoutStateFailed); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return locked, &entities.PaymentFailedError{Message: reason}

	default:
		locked.ExternalRef = &result.Reference
		if err := s.finalize(ctx, uow, locked); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return locked, nil
	}
}

// reserve commits the pending payout row. From this point the amount is
// excluded from the user's available balance.
func (s *PayoutService) reserve(ctx context.Context, userID, amount int64, destination string) (*entities.Payout, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.Users().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, entities.ErrNotFound)
	}
	if err := user.ValidateDebit(amount); err != nil {
		return nil, err
	}

	payout := &entities.Payout{
		UserID:         userID,
		Amount:         amount,
		Destination:    destination,
		IdempotencyKey: uuid.NewString(),
		State:          entities.PayoutStatePending,
	}
	if err := uow.Payouts().Create(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return payout, nil
}

// finalize marks the payout completed and records the ledger debit. The
// state change comes first so the payout no longer reserves balance when the
// debit is validated.
func (s *PayoutService) finalize(ctx context.Context, uow interfaces.UnitOfWork, payout *entities.Payout) error {
	if err := s.transition(ctx, uow, payout, entities.PayoutStateCompleted); err != nil {
		return err
	}

	ledger := NewLedgerService(uow.Users(), uow.Ledger(), uow.Events())
	relatedType := entities.RelatedTypePayout
	if _, err := ledger.Record(ctx, entities.BalanceChange{
		UserID:      payout.UserID,
		Amount:      -payout.Amount,
		Type:        entities.EntryTypeWithdraw,
		ExternalRef: payout.ExternalRef,
		RelatedID:   &payout.ID,
		RelatedType: &relatedType,
	}); err != nil {
		return fmt.Errorf("failed to record withdraw debit: %w", err)
	}
	return nil
}

func (s *PayoutService) transition(ctx context.Context, uow interfaces.UnitOfWork, payout *entities.Payout, to entities.PayoutState) error {
	from := payout.State
	payout.State = to
	if err := uow.Payouts().Update(ctx, payout); err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}

	if err := uow.Events().Publish(events.PayoutStateChangeEvent{
		PayoutID: payout.ID,
		UserID:   payout.UserID,
		Amount:   payout.Amount,
		OldState: from,
		NewState: to,
	}); err != nil {
		log.WithError(err).Error("Failed to publish payout state change event")
	}
	return nil
}

// Reconcile resolves payouts stuck awaiting confirmation by asking the
// gateway for their authoritative status. A non-answer leaves the payout
// queued; it is never resolved locally.
func (s *PayoutService) Reconcile(ctx context.Context, olderThan time.Duration) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	pending, err := uow.Payouts().ListAwaitingConfirmation(ctx, time.Now().Add(-olderThan))
	if rbErr := uow.Rollback(); rbErr != nil {
		log.WithError(rbErr).Error("Failed to rollback listing transaction")
	}
	if err != nil {
		return fmt.Errorf("failed to list payouts awaiting confirmation: %w", err)
	}

	for _, p := range pending {
		if err := s.reconcileOne(ctx, p.ID); err != nil {
			log.WithError(err).WithField("payoutID", p.ID).Error("Failed to reconcile payout")
		}
	}
	return nil
}

func (s *PayoutService) reconcileOne(ctx context.Context, payoutID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	payout, err := uow.Payouts().GetByIDForUpdate(ctx, payoutID)
	if err != nil {
		return fmt.Errorf("failed to get payout: %w", err)
	}
	if payout == nil || !payout.AwaitsConfirmation() {
		return nil
	}

	statusCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	status, err := s.gateway.VerifyStatus(statusCtx, payout.StatusReference())
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	switch status {
	case entities.PaymentStatusCompleted:
		if err := s.finalize(ctx, uow, payout); err != nil {
			return err
		}
	case entities.PaymentStatusFailed:
		reason := "gateway reported transfer failed"
		payout.FailureReason = &reason
		if err := s.transition(ctx, uow, payout, entities.PayoutStateFailed); err != nil {
			return err
		}
	default:
		// Still pending at the gateway; check again next pass.
		return nil
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"payoutID": payout.ID,
		"state":    payout.State,
	}).Info("Reconciled payout")
	return nil
}
