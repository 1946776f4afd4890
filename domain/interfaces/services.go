package interfaces

import (
	"context"

	"cardroom/domain/entities"
)

// LedgerService is the single entry point for balance changes. Record is
// always invoked inside the unit of work that performs the triggering state
// transition, so the entry and the cached balance update commit together.
type LedgerService interface {
	// Record validates and appends a balance change, updating the cached
	// balance. Debits that the user cannot cover fail with
	// *entities.InsufficientFundsError before any write.
	Record(ctx context.Context, change entities.BalanceChange) (*entities.LedgerEntry, error)

	// BalanceOf returns the maintained current balance
	BalanceOf(ctx context.Context, userID int64) (int64, error)

	// EntriesFor returns recent ledger entries for a user
	EntriesFor(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error)

	// DepositRefUsed reports whether an external payment reference has
	// already funded a deposit entry. Each gateway payment credits the
	// custodial books exactly once.
	DepositRefUsed(ctx context.Context, externalRef string) (bool, error)

	// Audit verifies balance == sum of entries for one user
	Audit(ctx context.Context, userID int64) error

	// AuditAll verifies the invariant for every user and returns the ids
	// whose cached balance drifted from their ledger sum
	AuditAll(ctx context.Context) ([]int64, error)
}

// AccountService manages identity and custodial balance operations
type AccountService interface {
	// Register creates an account. When a registration fee is configured the
	// gateway payment referenced by feePaymentRef must already be completed;
	// the account and its fee ledger entries commit atomically.
	Register(ctx context.Context, username, passwordHash, feePaymentRef string) (*entities.User, error)

	// Authenticate resolves username/password to a user
	Authenticate(ctx context.Context, username, password string) (*entities.User, error)

	// Deposit credits an externally funded amount
	Deposit(ctx context.Context, userID, amount int64, externalRef string) (*entities.User, error)

	// Profile returns the user with balance and counters
	Profile(ctx context.Context, userID int64) (*entities.User, error)

	// Leaderboard returns all users ordered by balance
	Leaderboard(ctx context.Context) ([]*entities.User, error)
}

// TableService drives the open -> in_game -> settled lifecycle
type TableService interface {
	Create(ctx context.Context, name string, creatorID int64) (*entities.Table, error)
	Join(ctx context.Context, tableID, userID int64) (*entities.Table, error)
	Start(ctx context.Context, tableID int64) (*entities.Table, error)
	DeclareWinner(ctx context.Context, tableID, winnerID int64) (*entities.Table, error)
	Get(ctx context.Context, tableID int64) (*entities.Table, error)
	List(ctx context.Context) ([]*entities.Table, error)
}

// TournamentService drives the open -> running -> settled lifecycle
type TournamentService interface {
	Create(ctx context.Context, name string, creatorID int64) (*entities.Tournament, error)
	Join(ctx context.Context, tournamentID, userID int64) (*entities.Tournament, error)
	AdvanceRound(ctx context.Context, tournamentID int64) (*entities.Tournament, error)
	DeclareWinner(ctx context.Context, tournamentID, winnerID int64) (*entities.Tournament, error)
	Get(ctx context.Context, tournamentID int64) (*entities.Tournament, error)
	List(ctx context.Context) ([]*entities.Tournament, error)
}

// Rand is the injectable randomness capability used for eliminations.
// *math/rand.Rand satisfies it; tests seed it for reproducible rounds.
type Rand interface {
	Perm(n int) []int
}

// PasswordHasher abstracts credential hashing so domain code never touches
// bcrypt directly
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}
