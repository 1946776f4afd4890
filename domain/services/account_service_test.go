package services

import (
	"context"
	"errors"
	"testing"

	"cardroom/domain/entities"
	"cardroom/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type accountServiceMocks struct {
	userRepo  *testhelpers.MockUserRepository
	ledger    *testhelpers.MockLedgerService
	gateway   *testhelpers.MockPaymentGateway
	hasher    *testhelpers.MockPasswordHasher
	publisher *testhelpers.MockEventPublisher
}

func newAccountService(fees Fees) (*accountServiceMocks, *accountService) {
	m := &accountServiceMocks{
		userRepo:  new(testhelpers.MockUserRepository),
		ledger:    new(testhelpers.MockLedgerService),
		gateway:   new(testhelpers.MockPaymentGateway),
		hasher:    new(testhelpers.MockPasswordHasher),
		publisher: new(testhelpers.MockEventPublisher),
	}
	svc := NewAccountService(m.userRepo, m.ledger, m.gateway, m.hasher, m.publisher, fees).(*accountService)
	return m, svc
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	fees := Fees{Registration: 2000, Game: 3, Tournament: 100}

	t.Run("fee confirmed then account created with zero balance", func(t *testing.T) {
		m, svc := newAccountService(fees)

		m.userRepo.On("GetByUsername", ctx, "alice").Return(nil, nil)
		m.ledger.On("DepositRefUsed", ctx, "pay-1").Return(false, nil)
		m.gateway.On("VerifyStatus", ctx, "pay-1").Return(entities.PaymentStatusCompleted, nil)
		m.userRepo.On("Create", ctx, "alice", "hash").Return(&entities.User{ID: 7, Username: "alice"}, nil)
		// Fee deposit then fee debit, summing to zero
		m.ledger.On("Record", ctx, mock.MatchedBy(func(c entities.BalanceChange) bool {
			return c.UserID == 7 && c.Amount == 2000 && c.Type == entities.EntryTypeDeposit
		})).Return(&entities.LedgerEntry{}, nil)
		m.ledger.On("Record", ctx, mock.MatchedBy(func(c entities.BalanceChange) bool {
			return c.UserID == 7 && c.Amount == -2000 && c.Type == entities.EntryTypeRegistrationFee
		})).Return(&entities.LedgerEntry{}, nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		user, err := svc.Register(ctx, "alice", "hash", "pay-1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)

		m.ledger.AssertExpectations(t)
		m.gateway.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		m, svc := newAccountService(fees)

		m.userRepo.On("GetByUsername", ctx, "alice").Return(&entities.User{ID: 1, Username: "alice"}, nil)

		_, err := svc.Register(ctx, "alice", "hash", "pay-1")
		assert.ErrorIs(t, err, entities.ErrDuplicateUser)
		m.gateway.AssertNotCalled(t, "VerifyStatus", mock.Anything, mock.Anything)
		m.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing fee reference", func(t *testing.T) {
		m, svc := newAccountService(fees)

		m.userRepo.On("GetByUsername", ctx, "alice").Return(nil, nil)

		_, err := svc.Register(ctx, "alice", "hash", "")
		var failedErr *entities.PaymentFailedError
		assert.ErrorAs(t, err, &failedErr)
		m.gateway.AssertNotCalled(t, "VerifyStatus", mock.Anything, mock.Anything)
	})

	t.Run("already-used fee reference rejected before the gateway", func(t *testing.T) {
		m, svc := newAccountService(fees)

		m.userRepo.On("GetByUsername", ctx, "alice").Return(nil, nil)
		m.ledger.On("DepositRefUsed", ctx, "pay-1").Return(true, nil)

		_, err := svc.Register(ctx, "alice", "hash", "pay-1")
		var failedErr *entities.PaymentFailedError
		require.ErrorAs(t, err, &failedErr)
		assert.Contains(t, failedErr.Message, "already used")
		m.gateway.AssertNotCalled(t, "VerifyStatus", mock.Anything, mock.Anything)
		m.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fee payment not completed", func(t *testing.T) {
		m, svc := newAccountService(fees)

		m.userRepo.On("GetByUsername", ctx, "alice").Return(nil, nil)
		m.ledger.On("DepositRefUsed", ctx, "pay-1").Return(false, nil)
		m.gateway.On("VerifyStatus", ctx, "pay-1").Return(entities.PaymentStatusPending, nil)

		_, err := svc.Register(ctx, "alice", "hash", "pay-1")
		var failedErr *entities.PaymentFailedError
		assert.ErrorAs(t, err, &failedErr)
		m.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway unreachable is ambiguous, no account written", func(t *testing.T) {
		m, svc := newAccountService(fees)

		m.userRepo.On("GetByUsername", ctx, "alice").Return(nil, nil)
		m.ledger.On("DepositRefUsed", ctx, "pay-1").Return(false, nil)
		m.gateway.On("VerifyStatus", ctx, "pay-1").Return(entities.PaymentStatus(""), errors.New("connection refused"))

		_, err := svc.Register(ctx, "alice", "hash", "pay-1")
		var ambiguousErr *entities.PaymentAmbiguousError
		require.ErrorAs(t, err, &ambiguousErr)
		assert.Equal(t, "pay-1", ambiguousErr.Reference)
		m.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("zero fee skips the gateway", func(t *testing.T) {
		m, svc := newAccountService(Fees{Registration: 0})

		m.userRepo.On("GetByUsername", ctx, "bob").Return(nil, nil)
		m.userRepo.On("Create", ctx, "bob", "hash").Return(&entities.User{ID: 8, Username: "bob"}, nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		user, err := svc.Register(ctx, "bob", "hash", "")
		require.NoError(t, err)
		assert.Equal(t, int64(8), user.ID)
		m.gateway.AssertNotCalled(t, "VerifyStatus", mock.Anything, mock.Anything)
		m.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestAccountService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		m, svc := newAccountService(Fees{})

		m.userRepo.On("GetByUsername", ctx, "alice").Return(&entities.User{ID: 1, Username: "alice", PasswordHash: "hash"}, nil)
		m.hasher.On("Verify", "hash", "secret").Return(true)

		user, err := svc.Authenticate(ctx, "alice", "secret")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		m, svc := newAccountService(Fees{})

		m.userRepo.On("GetByUsername", ctx, "alice").Return(&entities.User{ID: 1, PasswordHash: "hash"}, nil)
		m.hasher.On("Verify", "hash", "wrong").Return(false)

		_, err := svc.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
	})

	t.Run("unknown user indistinguishable from wrong password", func(t *testing.T) {
		m, svc := newAccountService(Fees{})

		m.userRepo.On("GetByUsername", ctx, "ghost").Return(nil, nil)

		_, err := svc.Authenticate(ctx, "ghost", "secret")
		assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
	})
}

func TestAccountService_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("records deposit with external reference", func(t *testing.T) {
		m, svc := newAccountService(Fees{})

		m.ledger.On("DepositRefUsed", ctx, "tx-77").Return(false, nil)
		m.ledger.On("Record", ctx, mock.MatchedBy(func(c entities.BalanceChange) bool {
			return c.UserID == 1 && c.Amount == 1000 &&
				c.Type == entities.EntryTypeDeposit &&
				c.ExternalRef != nil && *c.ExternalRef == "tx-77"
		})).Return(&entities.LedgerEntry{}, nil)
		m.userRepo.On("GetByID", ctx, int64(1)).Return(&entities.User{ID: 1, Balance: 1000}, nil)

		user, err := svc.Deposit(ctx, 1, 1000, "tx-77")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), user.Balance)
		m.ledger.AssertExpectations(t)
	})

	t.Run("replayed external reference rejected without a write", func(t *testing.T) {
		m, svc := newAccountService(Fees{})

		m.ledger.On("DepositRefUsed", ctx, "tx-77").Return(true, nil)

		_, err := svc.Deposit(ctx, 1, 1000, "tx-77")
		var failedErr *entities.PaymentFailedError
		require.ErrorAs(t, err, &failedErr)
		assert.Contains(t, failedErr.Message, "already used")
		m.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		m, svc := newAccountService(Fees{})

		_, err := svc.Deposit(ctx, 1, 0, "")
		assert.Error(t, err)
		_, err = svc.Deposit(ctx, 1, -500, "")
		assert.Error(t, err)
		m.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestAccountService_Profile(t *testing.T) {
	ctx := context.Background()
	m, svc := newAccountService(Fees{})

	m.userRepo.On("GetByID", ctx, int64(99)).Return(nil, nil)

	_, err := svc.Profile(ctx, 99)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}
