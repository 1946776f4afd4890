package repository

import (
	"context"
	"fmt"

	"cardroom/database"
	"cardroom/domain/entities"
)

// LedgerRepository implements the LedgerRepository interface over the
// append-only ledger_entries table
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx Queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record appends an entry. Entries are never updated or deleted.
func (r *LedgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (user_id, amount, entry_type, external_ref, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.UserID,
		entry.Amount,
		entry.Type,
		entry.ExternalRef,
		entry.RelatedID,
		entry.RelatedType,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry for user %d: %w", entry.UserID, err)
	}
	return nil
}

// DepositRefExists reports whether a deposit entry already carries the given
// external reference. A unique partial index enforces the same one-use rule
// at commit time; this check lets services reject a replay with a clean error
// before writing anything.
func (r *LedgerRepository) DepositRefExists(ctx context.Context, externalRef string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ledger_entries
			WHERE entry_type = 'deposit' AND external_ref = $1
		)
	`

	var exists bool
	if err := r.q.QueryRow(ctx, query, externalRef).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deposit reference %s: %w", externalRef, err)
	}
	return exists, nil
}

// GetByUser returns the newest entries for a user, most recent first
func (r *LedgerRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, user_id, amount, entry_type, external_ref, related_id, related_type, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var entry entities.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Amount,
			&entry.Type,
			&entry.ExternalRef,
			&entry.RelatedID,
			&entry.RelatedType,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// SumByUser returns the sum of all entry amounts for one user
func (r *LedgerRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries for user %d: %w", userID, err)
	}
	return sum, nil
}

// SumAll returns per-user entry sums. Users with no entries are absent.
func (r *LedgerRepository) SumAll(ctx context.Context) (map[int64]int64, error) {
	query := `
		SELECT user_id, SUM(amount)
		FROM ledger_entries
		GROUP BY user_id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	defer rows.Close()

	sums := make(map[int64]int64)
	for rows.Next() {
		var userID, sum int64
		if err := rows.Scan(&userID, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan ledger sum: %w", err)
		}
		sums[userID] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger sums: %w", err)
	}
	return sums, nil
}
