package repository

import (
	"context"
	"fmt"

	"cardroom/database"
	"cardroom/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TournamentRepository implements the TournamentRepository interface
type TournamentRepository struct {
	q Queryable
}

// NewTournamentRepository creates a new tournament repository
func NewTournamentRepository(db *database.DB) *TournamentRepository {
	return &TournamentRepository{q: db.Pool}
}

// newTournamentRepositoryWithTx creates a new tournament repository with a transaction
func newTournamentRepositoryWithTx(tx Queryable) *TournamentRepository {
	return &TournamentRepository{q: tx}
}

// Create inserts an open tournament at round 1
func (r *TournamentRepository) Create(ctx context.Context, tournament *entities.Tournament) error {
	query := `
		INSERT INTO tournaments (name, status, round)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, tournament.Name, tournament.Status, tournament.Round).
		Scan(&tournament.ID, &tournament.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament %q: %w", tournament.Name, err)
	}
	return nil
}

// GetByID retrieves a tournament with its entrants in join order
func (r *TournamentRepository) GetByID(ctx context.Context, id int64) (*entities.Tournament, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a tournament and row-locks it so concurrent
// round advances and settlements serialize
func (r *TournamentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Tournament, error) {
	return r.getByID(ctx, id, true)
}

func (r *TournamentRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*entities.Tournament, error) {
	query := `
		SELECT id, name, status, round, winner_id, created_at
		FROM tournaments
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var tournament entities.Tournament
	err := r.q.QueryRow(ctx, query, id).Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.Status,
		&tournament.Round,
		&tournament.WinnerID,
		&tournament.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	members, err := r.loadMembers(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	tournament.Members = members[id]

	return &tournament, nil
}

// AddMember registers an entrant. Returns false without error if the user
// already entered, which makes joins idempotent under concurrency.
func (r *TournamentRepository) AddMember(ctx context.Context, tournamentID, userID int64) (bool, error) {
	query := `
		INSERT INTO tournament_members (tournament_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (tournament_id, user_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, tournamentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add entrant %d to tournament %d: %w", userID, tournamentID, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkEliminated flags the given entrants as eliminated
func (r *TournamentRepository) MarkEliminated(ctx context.Context, tournamentID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `
		UPDATE tournament_members
		SET eliminated = TRUE
		WHERE tournament_id = $1 AND user_id = ANY($2)
	`

	result, err := r.q.Exec(ctx, query, tournamentID, userIDs)
	if err != nil {
		return fmt.Errorf("failed to mark eliminations in tournament %d: %w", tournamentID, err)
	}
	if result.RowsAffected() != int64(len(userIDs)) {
		return fmt.Errorf("tournament %d: eliminated %d of %d entrants", tournamentID, result.RowsAffected(), len(userIDs))
	}
	return nil
}

// Update persists status, round and winner
func (r *TournamentRepository) Update(ctx context.Context, tournament *entities.Tournament) error {
	query := `
		UPDATE tournaments
		SET status = $1, round = $2, winner_id = $3
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query, tournament.Status, tournament.Round, tournament.WinnerID, tournament.ID)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", tournament.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("tournament %d: %w", tournament.ID, entities.ErrNotFound)
	}
	return nil
}

// List returns all tournaments with their entrants, newest first
func (r *TournamentRepository) List(ctx context.Context) ([]*entities.Tournament, error) {
	query := `
		SELECT id, name, status, round, winner_id, created_at
		FROM tournaments
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*entities.Tournament
	var ids []int64
	for rows.Next() {
		var tournament entities.Tournament
		err := rows.Scan(
			&tournament.ID,
			&tournament.Name,
			&tournament.Status,
			&tournament.Round,
			&tournament.WinnerID,
			&tournament.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, &tournament)
		ids = append(ids, tournament.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tournaments: %w", err)
	}

	members, err := r.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, tournament := range tournaments {
		tournament.Members = members[tournament.ID]
	}

	return tournaments, nil
}

// loadMembers fetches entrants for the given tournaments, grouped by
// tournament and ordered by join order within each
func (r *TournamentRepository) loadMembers(ctx context.Context, tournamentIDs []int64) (map[int64][]entities.TournamentMember, error) {
	if len(tournamentIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT tm.tournament_id, tm.user_id, u.username, tm.eliminated
		FROM tournament_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.tournament_id = ANY($1)
		ORDER BY tm.id ASC
	`

	rows, err := r.q.Query(ctx, query, tournamentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament entrants: %w", err)
	}
	defer rows.Close()

	members := make(map[int64][]entities.TournamentMember)
	for rows.Next() {
		var tournamentID int64
		var member entities.TournamentMember
		if err := rows.Scan(&tournamentID, &member.UserID, &member.Username, &member.Eliminated); err != nil {
			return nil, fmt.Errorf("failed to scan tournament entrant: %w", err)
		}
		members[tournamentID] = append(members[tournamentID], member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tournament entrants: %w", err)
	}
	return members, nil
}
