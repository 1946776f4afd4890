package repository

import (
	"context"
	"fmt"

	"cardroom/database"
	"cardroom/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TableRepository implements the TableRepository interface
type TableRepository struct {
	q Queryable
}

// NewTableRepository creates a new table repository
func NewTableRepository(db *database.DB) *TableRepository {
	return &TableRepository{q: db.Pool}
}

// newTableRepositoryWithTx creates a new table repository with a transaction
func newTableRepositoryWithTx(tx Queryable) *TableRepository {
	return &TableRepository{q: tx}
}

// Create inserts an open table
func (r *TableRepository) Create(ctx context.Context, table *entities.Table) error {
	query := `
		INSERT INTO tables (name, status)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, table.Name, table.Status).Scan(&table.ID, &table.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create table %q: %w", table.Name, err)
	}
	return nil
}

// GetByID retrieves a table with its members in join order
func (r *TableRepository) GetByID(ctx context.Context, id int64) (*entities.Table, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a table and row-locks it so concurrent
// start/settle callers serialize. Member rows are read after the lock is
// held, so the membership seen here is the membership that gets charged.
func (r *TableRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Table, error) {
	return r.getByID(ctx, id, true)
}

func (r *TableRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*entities.Table, error) {
	query := `
		SELECT id, name, status, winner_id, created_at
		FROM tables
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var table entities.Table
	err := r.q.QueryRow(ctx, query, id).Scan(
		&table.ID,
		&table.Name,
		&table.Status,
		&table.WinnerID,
		&table.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table %d: %w", id, err)
	}

	members, err := r.loadMembers(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	table.Members = members[id]

	return &table, nil
}

// AddMember seats a user. Returns false without error if the seat already
// existed, which makes joins idempotent under concurrency.
func (r *TableRepository) AddMember(ctx context.Context, tableID, userID int64) (bool, error) {
	query := `
		INSERT INTO table_members (table_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (table_id, user_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, tableID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add member %d to table %d: %w", userID, tableID, err)
	}
	return result.RowsAffected() == 1, nil
}

// Update persists status and winner
func (r *TableRepository) Update(ctx context.Context, table *entities.Table) error {
	query := `
		UPDATE tables
		SET status = $1, winner_id = $2
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, table.Status, table.WinnerID, table.ID)
	if err != nil {
		return fmt.Errorf("failed to update table %d: %w", table.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("table %d: %w", table.ID, entities.ErrNotFound)
	}
	return nil
}

// List returns all tables with their members, newest first
func (r *TableRepository) List(ctx context.Context) ([]*entities.Table, error) {
	query := `
		SELECT id, name, status, winner_id, created_at
		FROM tables
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []*entities.Table
	var ids []int64
	for rows.Next() {
		var table entities.Table
		err := rows.Scan(
			&table.ID,
			&table.Name,
			&table.Status,
			&table.WinnerID,
			&table.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, &table)
		ids = append(ids, table.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	members, err := r.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		table.Members = members[table.ID]
	}

	return tables, nil
}

// loadMembers fetches members for the given tables, grouped by table and
// ordered by join order within each table
func (r *TableRepository) loadMembers(ctx context.Context, tableIDs []int64) (map[int64][]entities.TableMember, error) {
	if len(tableIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT tm.table_id, tm.user_id, u.username
		FROM table_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.table_id = ANY($1)
		ORDER BY tm.id ASC
	`

	rows, err := r.q.Query(ctx, query, tableIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load table members: %w", err)
	}
	defer rows.Close()

	members := make(map[int64][]entities.TableMember)
	for rows.Next() {
		var tableID int64
		var member entities.TableMember
		if err := rows.Scan(&tableID, &member.UserID, &member.Username); err != nil {
			return nil, fmt.Errorf("failed to scan table member: %w", err)
		}
		members[tableID] = append(members[tableID], member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table members: %w", err)
	}
	return members, nil
}
