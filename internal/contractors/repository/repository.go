// Package repository provides database operations for contractors.
package repository

import (
	"context"
	"errors"
	"fmt"

	"leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contractorNotFoundMsg = "contractor not found"

// Repository provides database operations for contractors.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new contractors repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const contractorColumns = `
	id, business_name, contact_name, email, phone,
	service_zips, specializations, primary_specialization,
	rating, conversion_rate, avg_response_minutes,
	max_leads_per_day, max_leads_per_week,
	subscription_tier, subscription_status,
	credit_balance_cents, has_payment_method,
	is_accepting_leads, is_verified, status,
	created_at, updated_at`

func scanContractor(row pgx.Row) (domain.Contractor, error) {
	var c domain.Contractor
	err := row.Scan(
		&c.ID,
		&c.BusinessName,
		&c.ContactName,
		&c.Email,
		&c.Phone,
		&c.ServiceZips,
		&c.Specializations,
		&c.PrimarySpecialization,
		&c.Rating,
		&c.ConversionRate,
		&c.AvgResponseMinutes,
		&c.MaxLeadsPerDay,
		&c.MaxLeadsPerWeek,
		&c.SubscriptionTier,
		&c.SubscriptionStatus,
		&c.CreditBalanceCents,
		&c.HasPaymentMethod,
		&c.IsAcceptingLeads,
		&c.IsVerified,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (r *Repository) Create(ctx context.Context, c domain.Contractor) (domain.Contractor, error) {
	query := `
		INSERT INTO contractors (
			id, business_name, contact_name, email, phone,
			service_zips, specializations, primary_specialization,
			rating, conversion_rate, avg_response_minutes,
			max_leads_per_day, max_leads_per_week,
			subscription_tier, subscription_status,
			credit_balance_cents, has_payment_method,
			is_accepting_leads, is_verified, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13,
			$14, $15,
			$16, $17,
			$18, $19, $20,
			$21, $22
		)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.BusinessName,
		c.ContactName,
		c.Email,
		c.Phone,
		c.ServiceZips,
		c.Specializations,
		c.PrimarySpecialization,
		c.Rating,
		c.ConversionRate,
		c.AvgResponseMinutes,
		c.MaxLeadsPerDay,
		c.MaxLeadsPerWeek,
		c.SubscriptionTier,
		c.SubscriptionStatus,
		c.CreditBalanceCents,
		c.HasPaymentMethod,
		c.IsAcceptingLeads,
		c.IsVerified,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return domain.Contractor{}, fmt.Errorf("create contractor: %w", err)
	}

	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Contractor, error) {
	query := `SELECT ` + contractorColumns + ` FROM contractors WHERE id = $1`

	c, err := scanContractor(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contractor{}, apperr.NotFound(contractorNotFoundMsg)
		}
		return domain.Contractor{}, fmt.Errorf("get contractor: %w", err)
	}

	return c, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.Contractor, error) {
	query := `SELECT ` + contractorColumns + ` FROM contractors WHERE email = $1`

	c, err := scanContractor(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contractor{}, apperr.NotFound(contractorNotFoundMsg)
		}
		return domain.Contractor{}, fmt.Errorf("get contractor by email: %w", err)
	}

	return c, nil
}

// EligibleContractors returns contractors that may receive a lead in the
// given zip for the given service type: active, verified, accepting,
// payment method on file, subscription in good standing, credit covering
// the lead price, and under the monthly cap of their subscription tier.
func (r *Repository) EligibleContractors(ctx context.Context, zip, serviceType string, priceCents int64) ([]domain.Contractor, error) {
	query := `
		SELECT ` + contractorColumns + `
		FROM contractors c
		WHERE c.status = 'active'
		  AND c.is_verified = true
		  AND c.is_accepting_leads = true
		  AND c.has_payment_method = true
		  AND c.subscription_status = 'active'
		  AND c.credit_balance_cents >= $3
		  AND $1 = ANY(c.service_zips)
		  AND $2 = ANY(c.specializations)
		  AND (
			SELECT count(*) FROM lead_assignments a
			WHERE a.contractor_id = c.id
			  AND a.assigned_at >= date_trunc('month', now())
		  ) < CASE c.subscription_tier
			WHEN 'starter' THEN 10
			WHEN 'pro' THEN 30
			WHEN 'elite' THEN 100
			ELSE 10
		  END
		ORDER BY c.created_at
	`

	rows, err := r.pool.Query(ctx, query, zip, serviceType, priceCents)
	if err != nil {
		return nil, fmt.Errorf("query eligible contractors: %w", err)
	}
	defer rows.Close()

	var out []domain.Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eligible contractor: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible contractors: %w", err)
	}

	return out, nil
}

// AssignmentCounts returns the number of assignments the contractor received
// today and during the current ISO week.
func (r *Repository) AssignmentCounts(ctx context.Context, contractorID uuid.UUID) (int, int, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE assigned_at >= date_trunc('day', now())),
			count(*) FILTER (WHERE assigned_at >= date_trunc('week', now()))
		FROM lead_assignments
		WHERE contractor_id = $1
	`

	var today, week int
	if err := r.pool.QueryRow(ctx, query, contractorID).Scan(&today, &week); err != nil {
		return 0, 0, fmt.Errorf("assignment counts: %w", err)
	}
	return today, week, nil
}

// ReserveCapacity atomically claims one capacity slot for the contractor.
// Both the daily and the weekly counter are incremented in one conditional
// UPDATE, so two concurrent assignments cannot both land on the last free
// slot of either cap. Contractors without caps always succeed.
func (r *Repository) ReserveCapacity(ctx context.Context, contractorID uuid.UUID) (bool, error) {
	query := `
		UPDATE contractors
		SET leads_today = leads_today + 1,
			leads_this_week = leads_this_week + 1,
			updated_at = now()
		WHERE id = $1
		  AND (max_leads_per_day IS NULL OR leads_today < max_leads_per_day)
		  AND (max_leads_per_week IS NULL OR leads_this_week < max_leads_per_week)
	`

	tag, err := r.pool.Exec(ctx, query, contractorID)
	if err != nil {
		return false, fmt.Errorf("reserve capacity: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseCapacity returns a previously reserved slot, used when assignment
// fails after the reservation.
func (r *Repository) ReleaseCapacity(ctx context.Context, contractorID uuid.UUID) error {
	query := `
		UPDATE contractors
		SET leads_today = GREATEST(leads_today - 1, 0),
			leads_this_week = GREATEST(leads_this_week - 1, 0),
			updated_at = now()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, contractorID); err != nil {
		return fmt.Errorf("release capacity: %w", err)
	}
	return nil
}

// ResetDailyCounters zeroes the per-day assignment counters, and the weekly
// counters when the day starts a new week. Run by the scheduler shortly
// after midnight.
func (r *Repository) ResetDailyCounters(ctx context.Context) (int64, error) {
	query := `
		UPDATE contractors
		SET leads_today = 0,
			leads_this_week = CASE
				WHEN date_trunc('week', now()) = date_trunc('day', now()) THEN 0
				ELSE leads_this_week
			END
		WHERE leads_today > 0
		   OR (date_trunc('week', now()) = date_trunc('day', now()) AND leads_this_week > 0)
	`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("reset daily counters: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DebitCredit conditionally deducts amountCents from the contractor's
// balance. The deduction only applies while the balance covers the amount,
// so a concurrent debit cannot drive the balance negative.
func (r *Repository) DebitCredit(ctx context.Context, contractorID uuid.UUID, amountCents int64) (bool, error) {
	query := `
		UPDATE contractors
		SET credit_balance_cents = credit_balance_cents - $2, updated_at = now()
		WHERE id = $1 AND credit_balance_cents >= $2
	`

	tag, err := r.pool.Exec(ctx, query, contractorID, amountCents)
	if err != nil {
		return false, fmt.Errorf("debit credit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreditBalance adds amountCents to the contractor's balance.
func (r *Repository) CreditBalance(ctx context.Context, contractorID uuid.UUID, amountCents int64) error {
	query := `
		UPDATE contractors
		SET credit_balance_cents = credit_balance_cents + $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, contractorID, amountCents)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// SetSubscription updates the contractor's tier and status, driven by the
// payment provider webhook.
func (r *Repository) SetSubscription(ctx context.Context, contractorID uuid.UUID, tier, status string) error {
	query := `
		UPDATE contractors
		SET subscription_tier = $2, subscription_status = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, contractorID, tier, status)
	if err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// SetStatus moves the contractor between active and suspended.
func (r *Repository) SetStatus(ctx context.Context, contractorID uuid.UUID, status string) error {
	query := `UPDATE contractors SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, contractorID, status)
	if err != nil {
		return fmt.Errorf("set contractor status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// SetVerified marks the contractor as verified after the onboarding review.
func (r *Repository) SetVerified(ctx context.Context, contractorID uuid.UUID) error {
	query := `UPDATE contractors SET is_verified = true, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, contractorID)
	if err != nil {
		return fmt.Errorf("set contractor verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// SetPaymentMethod records whether a chargeable payment method is on file.
func (r *Repository) SetPaymentMethod(ctx context.Context, contractorID uuid.UUID, hasMethod bool) error {
	query := `UPDATE contractors SET has_payment_method = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, contractorID, hasMethod)
	if err != nil {
		return fmt.Errorf("set payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// UpdateCaps adjusts the contractor's self-imposed daily/weekly limits.
// Passing nil clears a limit.
func (r *Repository) UpdateCaps(ctx context.Context, contractorID uuid.UUID, perDay, perWeek *int) error {
	query := `
		UPDATE contractors
		SET max_leads_per_day = $2, max_leads_per_week = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, contractorID, perDay, perWeek)
	if err != nil {
		return fmt.Errorf("update caps: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// SetAcceptingLeads toggles whether the contractor receives new leads.
func (r *Repository) SetAcceptingLeads(ctx context.Context, contractorID uuid.UUID, accepting bool) error {
	query := `UPDATE contractors SET is_accepting_leads = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, contractorID, accepting)
	if err != nil {
		return fmt.Errorf("set accepting leads: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// UpdatePerformance records the rolling performance metrics computed from
// assignment history.
func (r *Repository) UpdatePerformance(ctx context.Context, contractorID uuid.UUID, rating, conversionRate *float64, avgResponseMinutes *int) error {
	query := `
		UPDATE contractors
		SET rating = COALESCE($2, rating),
			conversion_rate = COALESCE($3, conversion_rate),
			avg_response_minutes = COALESCE($4, avg_response_minutes),
			updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, contractorID, rating, conversionRate, avgResponseMinutes)
	if err != nil {
		return fmt.Errorf("update performance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

// ListParams filters the admin contractor listing.
type ListParams struct {
	Status   string `form:"status"`
	Tier     string `form:"tier"`
	Zip      string `form:"zip"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ListResult is one page of contractors.
type ListResult struct {
	Items    []domain.Contractor
	Total    int
	Page     int
	PageSize int
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 25
	}

	where := ` WHERE 1=1`
	args := []any{}
	idx := 1
	if params.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, params.Status)
		idx++
	}
	if params.Tier != "" {
		where += fmt.Sprintf(" AND subscription_tier = $%d", idx)
		args = append(args, params.Tier)
		idx++
	}
	if params.Zip != "" {
		where += fmt.Sprintf(" AND $%d = ANY(service_zips)", idx)
		args = append(args, params.Zip)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM contractors`+where, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count contractors: %w", err)
	}

	query := `SELECT ` + contractorColumns + ` FROM contractors` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list contractors: %w", err)
	}
	defer rows.Close()

	var items []domain.Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan contractor: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate contractors: %w", err)
	}

	return ListResult{Items: items, Total: total, Page: params.Page, PageSize: params.PageSize}, nil
}
