package testhelpers

import (
	"context"

	"cardroom/domain/interfaces"
)

// FakeUnitOfWork wires mock repositories behind the UnitOfWork interface for
// service tests that exercise factory-owned flows. Begin/Commit/Rollback are
// tracked but otherwise no-ops.
type FakeUnitOfWork struct {
	UserRepo       *MockUserRepository
	LedgerRepo     *MockLedgerRepository
	TableRepo      *MockTableRepository
	TournamentRepo *MockTournamentRepository
	PayoutRepo     *MockPayoutRepository
	Publisher      *MockEventPublisher

	Began      int
	Committed  int
	RolledBack int
}

// NewFakeUnitOfWork creates a fake with fresh mocks for every repository
func NewFakeUnitOfWork() *FakeUnitOfWork {
	return &FakeUnitOfWork{
		UserRepo:       new(MockUserRepository),
		LedgerRepo:     new(MockLedgerRepository),
		TableRepo:      new(MockTableRepository),
		TournamentRepo: new(MockTournamentRepository),
		PayoutRepo:     new(MockPayoutRepository),
		Publisher:      new(MockEventPublisher),
	}
}

func (u *FakeUnitOfWork) Begin(ctx context.Context) error {
	u.Began++
	return nil
}

func (u *FakeUnitOfWork) Commit() error {
	u.Committed++
	return nil
}

func (u *FakeUnitOfWork) Rollback() error {
	u.RolledBack++
	return nil
}

func (u *FakeUnitOfWork) Users() interfaces.UserRepository             { return u.UserRepo }
func (u *FakeUnitOfWork) Ledger() interfaces.LedgerRepository          { return u.LedgerRepo }
func (u *FakeUnitOfWork) Tables() interfaces.TableRepository           { return u.TableRepo }
func (u *FakeUnitOfWork) Tournaments() interfaces.TournamentRepository { return u.TournamentRepo }
func (u *FakeUnitOfWork) Payouts() interfaces.PayoutRepository         { return u.PayoutRepo }
func (u *FakeUnitOfWork) Events() interfaces.EventPublisher            { return u.Publisher }

// FakeUnitOfWorkFactory hands out the same fake unit of work every time so
// tests can set expectations on one set of mocks.
type FakeUnitOfWorkFactory struct {
	UoW *FakeUnitOfWork
}

func (f *FakeUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return f.UoW
}
