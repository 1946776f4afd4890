package repository

import (
	"context"
	"fmt"

	"cardroom/database"
	"cardroom/domain/interfaces"
	"cardroom/infrastructure"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface. Repositories it hands out
// all share one pgx transaction, and events published through it are buffered
// until that transaction commits.
type unitOfWork struct {
	db             *database.DB
	tx             pgx.Tx
	ctx            context.Context
	publisher      interfaces.TransactionalEventPublisher
	userRepo       interfaces.UserRepository
	ledgerRepo     interfaces.LedgerRepository
	tableRepo      interfaces.TableRepository
	tournamentRepo interfaces.TournamentRepository
	payoutRepo     interfaces.PayoutRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Events published
// inside a unit of work reach basePublisher only after commit.
func NewUnitOfWorkFactory(db *database.DB, basePublisher interfaces.EventPublisher) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:            db,
		basePublisher: basePublisher,
	}
}

type unitOfWorkFactory struct {
	db            *database.DB
	basePublisher interfaces.EventPublisher
}

func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{
		db:        f.db,
		publisher: infrastructure.NewTransactionalPublisher(f.basePublisher),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.userRepo = newUserRepositoryWithTx(tx)
	u.ledgerRepo = newLedgerRepositoryWithTx(tx)
	u.tableRepo = newTableRepositoryWithTx(tx)
	u.tournamentRepo = newTournamentRepositoryWithTx(tx)
	u.payoutRepo = newPayoutRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes buffered events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if err := u.publisher.Flush(u.ctx); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}

	return nil
}

// Rollback rolls back the transaction and discards buffered events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	u.publisher.Discard()

	return nil
}

// Users returns the user repository for this unit of work
func (u *unitOfWork) Users() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// Ledger returns the ledger repository for this unit of work
func (u *unitOfWork) Ledger() interfaces.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

// Tables returns the table repository for this unit of work
func (u *unitOfWork) Tables() interfaces.TableRepository {
	if u.tableRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tableRepo
}

// Tournaments returns the tournament repository for this unit of work
func (u *unitOfWork) Tournaments() interfaces.TournamentRepository {
	if u.tournamentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tournamentRepo
}

// Payouts returns the payout repository for this unit of work
func (u *unitOfWork) Payouts() interfaces.PayoutRepository {
	if u.payoutRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.payoutRepo
}

// Events returns the transaction-scoped publisher
func (u *unitOfWork) Events() interfaces.EventPublisher {
	return u.publisher
}
