// Package repository provides database operations for the credit ledger.
package repository

import (
	"context"
	"fmt"

	"leadmarket_backend/internal/subscriptions/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for credit transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new subscriptions repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends a ledger entry.
func (r *Repository) Record(ctx context.Context, tx domain.CreditTransaction) error {
	query := `
		INSERT INTO credit_transactions (
			id, contractor_id, type, amount_cents, balance_after, reference, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, now())
	`

	_, err := r.pool.Exec(ctx, query,
		tx.ID,
		tx.ContractorID,
		tx.Type,
		tx.AmountCents,
		tx.BalanceAfter,
		tx.Reference,
	)
	if err != nil {
		return fmt.Errorf("record credit transaction: %w", err)
	}
	return nil
}

// ListByContractor returns a contractor's ledger, newest first.
func (r *Repository) ListByContractor(ctx context.Context, contractorID uuid.UUID, limit int) ([]domain.CreditTransaction, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, contractor_id, type, amount_cents, balance_after, reference, created_at
		FROM credit_transactions
		WHERE contractor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, contractorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.CreditTransaction
	for rows.Next() {
		var tx domain.CreditTransaction
		if err := rows.Scan(
			&tx.ID,
			&tx.ContractorID,
			&tx.Type,
			&tx.AmountCents,
			&tx.BalanceAfter,
			&tx.Reference,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan credit transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit transactions: %w", err)
	}
	return out, nil
}
