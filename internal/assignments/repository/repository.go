// Package repository provides database operations for lead assignments.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadmarket_backend/internal/assignments/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const assignmentNotFoundMsg = "assignment not found"

const uniqueViolationCode = "23505"

// Repository provides database operations for assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new assignments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assignmentColumns = `
	id, lead_id, contractor_id, price_cents, tracking_number,
	status, response_deadline, assigned_at, contacted_at`

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(
		&a.ID,
		&a.LeadID,
		&a.ContractorID,
		&a.PriceCents,
		&a.TrackingNumber,
		&a.Status,
		&a.ResponseDeadline,
		&a.AssignedAt,
		&a.ContactedAt,
	)
	return a, err
}

// Create persists a new assignment. A unique index on lead_id guarantees at
// most one assignment per lead; a second insert surfaces as a conflict.
func (r *Repository) Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	query := `
		INSERT INTO lead_assignments (
			id, lead_id, contractor_id, price_cents, tracking_number,
			status, response_deadline, assigned_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + assignmentColumns

	created, err := scanAssignment(r.pool.QueryRow(ctx, query,
		a.ID,
		a.LeadID,
		a.ContractorID,
		a.PriceCents,
		a.TrackingNumber,
		a.Status,
		a.ResponseDeadline,
		a.AssignedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.Assignment{}, apperr.Conflict("lead already assigned")
		}
		return domain.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}

	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM lead_assignments WHERE id = $1`

	a, err := scanAssignment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Assignment{}, apperr.NotFound(assignmentNotFoundMsg)
		}
		return domain.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID) (domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM lead_assignments WHERE lead_id = $1`

	a, err := scanAssignment(r.pool.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Assignment{}, apperr.NotFound(assignmentNotFoundMsg)
		}
		return domain.Assignment{}, fmt.Errorf("get assignment by lead: %w", err)
	}
	return a, nil
}

// MarkContacted flips the assignment to contacted. Already contacted rows
// are left untouched so duplicate billing callbacks cannot regress state.
func (r *Repository) MarkContacted(ctx context.Context, leadID uuid.UUID, at time.Time) error {
	query := `
		UPDATE lead_assignments
		SET status = $2, contacted_at = $3
		WHERE lead_id = $1 AND status = $4
	`

	if _, err := r.pool.Exec(ctx, query, leadID, domain.StatusContacted, at, domain.StatusAssigned); err != nil {
		return fmt.Errorf("mark assignment contacted: %w", err)
	}
	return nil
}

// ExpireOverdue marks assignments whose response deadline lapsed without
// contact and returns the affected assignments for follow-up.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Assignment, error) {
	query := `
		UPDATE lead_assignments
		SET status = $1
		WHERE status = $2 AND response_deadline <= $3
		RETURNING ` + assignmentColumns

	rows, err := r.pool.Query(ctx, query, domain.StatusExpired, domain.StatusAssigned, now)
	if err != nil {
		return nil, fmt.Errorf("expire overdue assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired assignments: %w", err)
	}
	return out, nil
}
