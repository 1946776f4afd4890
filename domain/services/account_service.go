package services

import (
	"context"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type accountService struct {
	userRepo interfaces.UserRepository
	ledger   interfaces.LedgerService
	gateway  interfaces.PaymentGateway
	hasher   interfaces.PasswordHasher
	events   interfaces.EventPublisher
	fees     Fees
}

// NewAccountService creates a new account service bound to one unit of work
func NewAccountService(
	userRepo interfaces.UserRepository,
	ledger interfaces.LedgerService,
	gateway interfaces.PaymentGateway,
	hasher interfaces.PasswordHasher,
	eventPublisher interfaces.EventPublisher,
	fees Fees,
) interfaces.AccountService {
	return &accountService{
		userRepo: userRepo,
		ledger:   ledger,
		gateway:  gateway,
		hasher:   hasher,
		events:   eventPublisher,
		fees:     fees,
	}
}

// Register creates an account inside the current transaction. The mandatory
// registration fee must be confirmed by the gateway before any row is
// written: an account can never persist with an unpaid fee. The confirmed
// fee payment is ledgered as a deposit followed by the fee debit so the
// entries sum to the true starting balance of zero.
func (s *accountService) Register(ctx context.Context, username, passwordHash, feePaymentRef string) (*entities.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("username %q: %w", username, entities.ErrDuplicateUser)
	}

	if s.fees.Registration > 0 {
		if feePaymentRef == "" {
			return nil, &entities.PaymentFailedError{Message: "registration fee payment reference required"}
		}
		// A gateway payment funds the books once. Replaying a completed
		// reference would ledger external money that never arrived again.
		used, err := s.ledger.DepositRefUsed(ctx, feePaymentRef)
		if err != nil {
			return nil, fmt.Errorf("failed to check fee payment reference: %w", err)
		}
		if used {
			return nil, &entities.PaymentFailedError{
				Message: fmt.Sprintf("payment reference %s already used", feePaymentRef),
			}
		}
		status, err := s.gateway.VerifyStatus(ctx, feePaymentRef)
		if err != nil {
			return nil, &entities.PaymentAmbiguousError{Reference: feePaymentRef}
		}
		if status != entities.PaymentStatusCompleted {
			return nil, &entities.PaymentFailedError{
				Message: fmt.Sprintf("registration fee payment %s is %s, not completed", feePaymentRef, status),
			}
		}
	}

	user, err := s.userRepo.Create(ctx, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.fees.Registration > 0 {
		ref := feePaymentRef
		if _, err := s.ledger.Record(ctx, entities.BalanceChange{
			UserID:      user.ID,
			Amount:      s.fees.Registration,
			Type:        entities.EntryTypeDeposit,
			ExternalRef: &ref,
		}); err != nil {
			return nil, fmt.Errorf("failed to record fee deposit: %w", err)
		}
		if _, err := s.ledger.Record(ctx, entities.BalanceChange{
			UserID: user.ID,
			Amount: -s.fees.Registration,
			Type:   entities.EntryTypeRegistrationFee,
		}); err != nil {
			return nil, fmt.Errorf("failed to record registration fee: %w", err)
		}
	}

	if err := s.events.Publish(events.UserRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
	}); err != nil {
		log.WithError(err).Error("Failed to publish user registered event")
	}

	return user, nil
}

func (s *accountService) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !s.hasher.Verify(user.PasswordHash, password) {
		return nil, entities.ErrInvalidCredentials
	}
	return user, nil
}

func (s *accountService) Deposit(ctx context.Context, userID, amount int64, externalRef string) (*entities.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive")
	}

	change := entities.BalanceChange{
		UserID: userID,
		Amount: amount,
		Type:   entities.EntryTypeDeposit,
	}
	if externalRef != "" {
		used, err := s.ledger.DepositRefUsed(ctx, externalRef)
		if err != nil {
			return nil, fmt.Errorf("failed to check payment reference: %w", err)
		}
		if used {
			return nil, &entities.PaymentFailedError{
				Message: fmt.Sprintf("payment reference %s already used", externalRef),
			}
		}
		change.ExternalRef = &externalRef
	}
	if _, err := s.ledger.Record(ctx, change); err != nil {
		return nil, err
	}

	return s.Profile(ctx, userID)
}

func (s *accountService) Profile(ctx context.Context, userID int64) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, entities.ErrNotFound)
	}
	return user, nil
}

func (s *accountService) Leaderboard(ctx context.Context) ([]*entities.User, error) {
	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
