// Package repository provides database operations for leads.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, first_name, last_name, email, phone,
	address, city, state, zip,
	service_type, timeline, budget_range, property_type,
	description, property_age, system_issue,
	utm_source, utm_campaign,
	score, category, price_cents, confidence, quality_flags,
	status, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID,
		&l.FirstName,
		&l.LastName,
		&l.Email,
		&l.Phone,
		&l.Address,
		&l.City,
		&l.State,
		&l.Zip,
		&l.ServiceType,
		&l.Timeline,
		&l.BudgetRange,
		&l.PropertyType,
		&l.Description,
		&l.PropertyAge,
		&l.SystemIssue,
		&l.UTMSource,
		&l.UTMCampaign,
		&l.Score,
		&l.Category,
		&l.PriceCents,
		&l.Confidence,
		&l.QualityFlags,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	return l, err
}

func (r *Repository) Create(ctx context.Context, l *domain.Lead) error {
	query := `
		INSERT INTO leads (
			id, first_name, last_name, email, phone,
			address, city, state, zip,
			service_type, timeline, budget_range, property_type,
			description, property_age, system_issue,
			utm_source, utm_campaign,
			score, category, price_cents, confidence, quality_flags,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16,
			$17, $18,
			$19, $20, $21, $22, $23,
			$24, now(), now()
		)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		l.ID, l.FirstName, l.LastName, l.Email, l.Phone,
		l.Address, l.City, l.State, l.Zip,
		l.ServiceType, l.Timeline, l.BudgetRange, l.PropertyType,
		l.Description, l.PropertyAge, l.SystemIssue,
		l.UTMSource, l.UTMCampaign,
		l.Score, l.Category, l.PriceCents, l.Confidence, l.QualityFlags,
		l.Status,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	l, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// UpdateStatus advances the lead only when it is currently in the expected
// status, keeping the lifecycle monotonic under concurrent writers.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) error {
	query := `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("lead is not in the expected status")
	}
	return nil
}

// MarkContacted moves an assigned lead to contacted. Already-contacted leads
// are left alone so repeated billing callbacks stay harmless.
func (r *Repository) MarkContacted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`

	if _, err := r.pool.Exec(ctx, query, id, domain.StatusContacted, domain.StatusAssigned); err != nil {
		return fmt.Errorf("mark lead contacted: %w", err)
	}
	return nil
}

// RecentDuplicateExists reports whether a lead with the same email, or the
// same phone digits under a different email, was submitted since the cutoff.
func (r *Repository) RecentDuplicateExists(ctx context.Context, email, phoneDigits string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM leads
			WHERE created_at >= $3
			  AND (lower(email) = lower($1) OR regexp_replace(phone, '\D', '', 'g') = $2)
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, phoneDigits, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate lead: %w", err)
	}
	return exists, nil
}

// ListParams filters the admin lead listing.
type ListParams struct {
	Status      string `form:"status"`
	Category    string `form:"category"`
	ServiceType string `form:"serviceType"`
	Zip         string `form:"zip"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []any{}

	if params.Status != "" {
		args = append(args, params.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if params.Category != "" {
		args = append(args, params.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if params.ServiceType != "" {
		args = append(args, params.ServiceType)
		query += fmt.Sprintf(" AND service_type = $%d", len(args))
	}
	if params.Zip != "" {
		args = append(args, params.Zip)
		query += fmt.Sprintf(" AND zip = $%d", len(args))
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, params.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
