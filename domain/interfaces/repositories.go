package interfaces

import (
	"context"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"
)

// UserRepository defines the interface for user data access.
// Lookups return (nil, nil) when no row matches; services translate that to
// entities.ErrNotFound.
type UserRepository interface {
	// GetByID retrieves a user by id, with available balance derived
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// GetByIDForUpdate retrieves a user and row-locks it for the duration of
	// the current transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error)

	// GetByUsername retrieves a user by unique username
	GetByUsername(ctx context.Context, username string) (*entities.User, error)

	// Create inserts a new user with a zero balance
	Create(ctx context.Context, username, passwordHash string) (*entities.User, error)

	// UpdateBalance sets the cached balance column
	UpdateBalance(ctx context.Context, id int64, newBalance int64) error

	// IncrementGamesPlayed bumps games_played for all given users
	IncrementGamesPlayed(ctx context.Context, ids []int64) error

	// IncrementGamesWon bumps games_won for one user
	IncrementGamesWon(ctx context.Context, id int64) error

	// IncrementTournamentsPlayed bumps tournaments_played for one user
	IncrementTournamentsPlayed(ctx context.Context, id int64) error

	// IncrementTournamentsWon bumps tournaments_won for one user
	IncrementTournamentsWon(ctx context.Context, id int64) error

	// GetAll returns all users ordered by balance descending
	GetAll(ctx context.Context) ([]*entities.User, error)
}

// LedgerRepository defines the interface for the append-only ledger
type LedgerRepository interface {
	// Record appends an entry; ID and CreatedAt are populated on return
	Record(ctx context.Context, entry *entities.LedgerEntry) error

	// DepositRefExists reports whether a deposit entry already carries the
	// given external payment reference
	DepositRefExists(ctx context.Context, externalRef string) (bool, error)

	// GetByUser returns the newest entries for a user, most recent first
	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error)

	// SumByUser returns the sum of all entry amounts for a user
	SumByUser(ctx context.Context, userID int64) (int64, error)

	// SumAll returns per-user entry sums for the consistency audit
	SumAll(ctx context.Context) (map[int64]int64, error)
}

// TableRepository defines the interface for table data access
type TableRepository interface {
	// Create inserts an open table; ID and CreatedAt are populated on return
	Create(ctx context.Context, table *entities.Table) error

	// GetByID retrieves a table with its members in join order
	GetByID(ctx context.Context, id int64) (*entities.Table, error)

	// GetByIDForUpdate retrieves a table and row-locks it so concurrent
	// start/settle callers serialize
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Table, error)

	// AddMember seats a user; returns false if the user already held a seat
	AddMember(ctx context.Context, tableID, userID int64) (bool, error)

	// Update persists status and winner
	Update(ctx context.Context, table *entities.Table) error

	// List returns all tables with members, newest first
	List(ctx context.Context) ([]*entities.Table, error)
}

// TournamentRepository defines the interface for tournament data access
type TournamentRepository interface {
	// Create inserts an open tournament at round 1
	Create(ctx context.Context, tournament *entities.Tournament) error

	// GetByID retrieves a tournament with its members in join order
	GetByID(ctx context.Context, id int64) (*entities.Tournament, error)

	// GetByIDForUpdate retrieves a tournament and row-locks it
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Tournament, error)

	// AddMember registers an entrant; returns false if already entered
	AddMember(ctx context.Context, tournamentID, userID int64) (bool, error)

	// MarkEliminated flags the given entrants as eliminated
	MarkEliminated(ctx context.Context, tournamentID int64, userIDs []int64) error

	// Update persists status, round and winner
	Update(ctx context.Context, tournament *entities.Tournament) error

	// List returns all tournaments with members, newest first
	List(ctx context.Context) ([]*entities.Tournament, error)
}

// PayoutRepository defines the interface for outbound transfer records
type PayoutRepository interface {
	// Create inserts a pending payout
	Create(ctx context.Context, payout *entities.Payout) error

	// GetByID retrieves a payout
	GetByID(ctx context.Context, id int64) (*entities.Payout, error)

	// GetByIDForUpdate retrieves a payout and row-locks it so a concurrent
	// reconciliation pass cannot double-settle it
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Payout, error)

	// Update persists state, external reference and failure reason
	Update(ctx context.Context, payout *entities.Payout) error

	// ListAwaitingConfirmation returns pending/sent payouts created before
	// the cutoff, oldest first
	ListAwaitingConfirmation(ctx context.Context, before time.Time) ([]*entities.Payout, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding database
// transaction resolves: Flush after commit, Discard on rollback.
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}

// UnitOfWork scopes a set of repositories to one database transaction.
// Every state transition that touches both an entity and the ledger runs
// against a single unit of work so partial effects cannot commit.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	Users() UserRepository
	Ledger() LedgerRepository
	Tables() TableRepository
	Tournaments() TournamentRepository
	Payouts() PayoutRepository

	// Events returns the transaction-scoped publisher; published events are
	// delivered only if the unit of work commits
	Events() EventPublisher
}

// UnitOfWorkFactory creates request-scoped units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
