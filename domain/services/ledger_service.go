package services

import (
	"context"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	userRepo       interfaces.UserRepository
	ledgerRepo     interfaces.LedgerRepository
	eventPublisher interfaces.EventPublisher
}

// NewLedgerService creates a new ledger service bound to one unit of work
func NewLedgerService(userRepo interfaces.UserRepository, ledgerRepo interfaces.LedgerRepository, eventPublisher interfaces.EventPublisher) interfaces.LedgerService {
	return &ledgerService{
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		eventPublisher: eventPublisher,
	}
}

func (s *ledgerService) Record(ctx context.Context, change entities.BalanceChange) (*entities.LedgerEntry, error) {
	if change.Amount == 0 {
		return nil, fmt.Errorf("change amount cannot be zero")
	}

	// Row-lock the user so concurrent transactions recording entries for the
	// same account serialize. Without the lock two transactions would read the
	// same committed balance and the second commit would overwrite the
	// first's update, leaving the cached balance behind the ledger sum.
	user, err := s.userRepo.GetByIDForUpdate(ctx, change.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", change.UserID, entities.ErrNotFound)
	}

	// Debits are validated against the available balance before anything is
	// written, so a rejected charge leaves no trace.
	if change.Amount < 0 {
		if err := user.ValidateDebit(-change.Amount); err != nil {
			return nil, err
		}
	}

	newBalance := user.Balance + change.Amount
	if err := s.userRepo.UpdateBalance(ctx, user.ID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	entry := &entities.LedgerEntry{
		UserID:      change.UserID,
		Amount:      change.Amount,
		Type:        change.Type,
		ExternalRef: change.ExternalRef,
		RelatedID:   change.RelatedID,
		RelatedType: change.RelatedType,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}

	if err := s.eventPublisher.Publish(events.BalanceChangeEvent{
		UserID:       user.ID,
		OldBalance:   user.Balance,
		NewBalance:   newBalance,
		ChangeAmount: change.Amount,
		EntryType:    change.Type,
	}); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return entry, nil
}

func (s *ledgerService) BalanceOf(ctx context.Context, userID int64) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, fmt.Errorf("user %d: %w", userID, entities.ErrNotFound)
	}
	return user.Balance, nil
}

func (s *ledgerService) DepositRefUsed(ctx context.Context, externalRef string) (bool, error) {
	used, err := s.ledgerRepo.DepositRefExists(ctx, externalRef)
	if err != nil {
		return false, fmt.Errorf("failed to check deposit reference: %w", err)
	}
	return used, nil
}

func (s *ledgerService) EntriesFor(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	entries, err := s.ledgerRepo.GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return entries, nil
}

func (s *ledgerService) Audit(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", userID, entities.ErrNotFound)
	}

	sum, err := s.ledgerRepo.SumByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	if sum != user.Balance {
		return fmt.Errorf("ledger drift for user %d: cached balance %d, ledger sum %d", userID, user.Balance, sum)
	}
	return nil
}

func (s *ledgerService) AuditAll(ctx context.Context) ([]int64, error) {
	sums, err := s.ledgerRepo.SumAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var drifted []int64
	for _, user := range users {
		if sums[user.ID] != user.Balance {
			log.WithFields(log.Fields{
				"userID":        user.ID,
				"cachedBalance": user.Balance,
				"ledgerSum":     sums[user.ID],
			}).Error("Ledger consistency violation detected")
			drifted = append(drifted, user.ID)
		}
	}
	return drifted, nil
}
