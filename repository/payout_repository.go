package repository

import (
	"context"
	"fmt"
	"time"

	"cardroom/database"
	"cardroom/domain/entities"

	"github.com/jackc/pgx/v5"
)

// PayoutRepository implements the PayoutRepository interface
type PayoutRepository struct {
	q Queryable
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *database.DB) *PayoutRepository {
	return &PayoutRepository{q: db.Pool}
}

// newPayoutRepositoryWithTx creates a new payout repository with a transaction
func newPayoutRepositoryWithTx(tx Queryable) *PayoutRepository {
	return &PayoutRepository{q: tx}
}

// Create inserts a pending payout. The idempotency key is unique, so the
// same logical withdrawal can never be reserved twice.
func (r *PayoutRepository) Create(ctx context.Context, payout *entities.Payout) error {
	query := `
		INSERT INTO payouts (user_id, amount, destination, idempotency_key, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		payout.UserID,
		payout.Amount,
		payout.Destination,
		payout.IdempotencyKey,
		payout.State,
	).Scan(&payout.ID, &payout.CreatedAt, &payout.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payout for user %d: %w", payout.UserID, err)
	}
	return nil
}

// GetByID retrieves a payout
func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*entities.Payout, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a payout and row-locks it so a concurrent
// reconciliation pass cannot double-settle it
func (r *PayoutRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Payout, error) {
	return r.getByID(ctx, id, true)
}

func (r *PayoutRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*entities.Payout, error) {
	query := `
		SELECT id, user_id, amount, destination, idempotency_key, state, external_ref, failure_reason, created_at, updated_at
		FROM payouts
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	payout, err := r.scanPayout(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get payout %d: %w", id, err)
	}
	return payout, nil
}

func (r *PayoutRepository) scanPayout(row pgx.Row) (*entities.Payout, error) {
	var payout entities.Payout
	err := row.Scan(
		&payout.ID,
		&payout.UserID,
		&payout.Amount,
		&payout.Destination,
		&payout.IdempotencyKey,
		&payout.State,
		&payout.ExternalRef,
		&payout.FailureReason,
		&payout.CreatedAt,
		&payout.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// Update persists state, external reference and failure reason
func (r *PayoutRepository) Update(ctx context.Context, payout *entities.Payout) error {
	query := `
		UPDATE payouts
		SET state = $1, external_ref = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query, payout.State, payout.ExternalRef, payout.FailureReason, payout.ID)
	if err != nil {
		return fmt.Errorf("failed to update payout %d: %w", payout.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payout %d: %w", payout.ID, entities.ErrNotFound)
	}
	return nil
}

// ListAwaitingConfirmation returns pending/sent payouts created before the
// cutoff, oldest first, for the reconciliation loop
func (r *PayoutRepository) ListAwaitingConfirmation(ctx context.Context, before time.Time) ([]*entities.Payout, error) {
	query := `
		SELECT id, user_id, amount, destination, idempotency_key, state, external_ref, failure_reason, created_at, updated_at
		FROM payouts
		WHERE state IN ('pending', 'sent') AND created_at < $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts awaiting confirmation: %w", err)
	}
	defer rows.Close()

	var payouts []*entities.Payout
	for rows.Next() {
		var payout entities.Payout
		err := rows.Scan(
			&payout.ID,
			&payout.UserID,
			&payout.Amount,
			&payout.Destination,
			&payout.IdempotencyKey,
			&payout.State,
			&payout.ExternalRef,
			&payout.FailureReason,
			&payout.CreatedAt,
			&payout.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, &payout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}
	return payouts, nil
}
