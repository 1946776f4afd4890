package repository

import (
	"context"
	"errors"
	"fmt"

	"cardroom/database"
	"cardroom/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// userSelect derives available_balance by subtracting payouts that still
// await gateway confirmation, so in-flight withdrawals reserve balance.
const userSelect = `
	SELECT
		u.id,
		u.username,
		u.password_hash,
		u.balance,
		u.games_played,
		u.games_won,
		u.tournaments_played,
		u.tournaments_won,
		u.created_at,
		u.updated_at,
		u.balance - COALESCE(
			(SELECT SUM(p.amount)
			 FROM payouts p
			 WHERE p.user_id = u.id
			   AND p.state IN ('pending', 'sent')),
			0
		) AS available_balance
	FROM users u
`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func (r *UserRepository) scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Balance,
		&user.GamesPlayed,
		&user.GamesWon,
		&user.TournamentsPlayed,
		&user.TournamentsWon,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.AvailableBalance,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	user, err := r.scanUser(r.q.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate retrieves a user and row-locks them for the duration of
// the current transaction
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error) {
	user, err := r.scanUser(r.q.QueryRow(ctx, userSelect+` WHERE u.id = $1 FOR UPDATE OF u`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

// GetByUsername retrieves a user by their unique username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	user, err := r.scanUser(r.q.QueryRow(ctx, userSelect+` WHERE u.username = $1`, username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return user, nil
}

// Create creates a new user with a zero balance. A concurrent insert of the
// same username surfaces as ErrDuplicateUser via the unique constraint.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*entities.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, balance, games_played, games_won, tournaments_played, tournaments_won, created_at, updated_at
	`

	user := entities.User{
		Username:     username,
		PasswordHash: passwordHash,
	}
	err := r.q.QueryRow(ctx, query, username, passwordHash).Scan(
		&user.ID,
		&user.Balance,
		&user.GamesPlayed,
		&user.GamesWon,
		&user.TournamentsPlayed,
		&user.TournamentsWon,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("username %q: %w", username, entities.ErrDuplicateUser)
		}
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	// A new user has no in-flight payouts
	user.AvailableBalance = user.Balance

	return &user, nil
}

// UpdateBalance sets the cached balance column
func (r *UserRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	query := `
		UPDATE users
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, entities.ErrNotFound)
	}
	return nil
}

// IncrementGamesPlayed bumps games_played for every given user
func (r *UserRepository) IncrementGamesPlayed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE users
		SET games_played = games_played + 1, updated_at = NOW()
		WHERE id = ANY($1)
	`
	if _, err := r.q.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to increment games played: %w", err)
	}
	return nil
}

// IncrementGamesWon bumps games_won for one user
func (r *UserRepository) IncrementGamesWon(ctx context.Context, id int64) error {
	return r.increment(ctx, id, "games_won")
}

// IncrementTournamentsPlayed bumps tournaments_played for one user
func (r *UserRepository) IncrementTournamentsPlayed(ctx context.Context, id int64) error {
	return r.increment(ctx, id, "tournaments_played")
}

// IncrementTournamentsWon bumps tournaments_won for one user
func (r *UserRepository) IncrementTournamentsWon(ctx context.Context, id int64) error {
	return r.increment(ctx, id, "tournaments_won")
}

func (r *UserRepository) increment(ctx context.Context, id int64, column string) error {
	// column is one of the fixed counter names above, never caller input
	query := fmt.Sprintf(`UPDATE users SET %s = %s + 1, updated_at = NOW() WHERE id = $1`, column, column)

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment %s for user %d: %w", column, id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, entities.ErrNotFound)
	}
	return nil
}

// GetAll returns every user ordered by balance descending
func (r *UserRepository) GetAll(ctx context.Context) ([]*entities.User, error) {
	rows, err := r.q.Query(ctx, userSelect+` ORDER BY u.balance DESC, u.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		var user entities.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.Balance,
			&user.GamesPlayed,
			&user.GamesWon,
			&user.TournamentsPlayed,
			&user.TournamentsWon,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.AvailableBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
