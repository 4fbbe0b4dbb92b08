// Package repository provides database operations for billing records and
// call logs.
package repository

import (
	"context"
	"errors"
	"fmt"

	"leadmarket_backend/internal/billing/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordNotFoundMsg = "billing record not found"

// Repository provides database operations for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new billing repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `
	id, lead_id, contractor_id, assignment_id, call_sid,
	amount_cents, duration_seconds, charge_status, payment_method, charge_id,
	failure_reason, dispute_status, dispute_reason, credited_cents, created_at, updated_at`

func scanRecord(row pgx.Row) (domain.BillingRecord, error) {
	var rec domain.BillingRecord
	err := row.Scan(
		&rec.ID,
		&rec.LeadID,
		&rec.ContractorID,
		&rec.AssignmentID,
		&rec.CallSid,
		&rec.AmountCents,
		&rec.DurationSeconds,
		&rec.ChargeStatus,
		&rec.PaymentMethod,
		&rec.ChargeID,
		&rec.FailureReason,
		&rec.DisputeStatus,
		&rec.DisputeReason,
		&rec.CreditedCents,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

// CreateIfAbsent inserts the billing record unless one already exists for
// the same lead and contractor. The existence check and the insert run in
// one transaction, so concurrent duplicate callbacks produce exactly one
// record. Returns the stored record and whether this call created it.
func (r *Repository) CreateIfAbsent(ctx context.Context, rec domain.BillingRecord) (domain.BillingRecord, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.BillingRecord{}, false, fmt.Errorf("begin billing tx: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := scanRecord(tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM billing_records
		 WHERE lead_id = $1 AND contractor_id = $2
		 FOR UPDATE`,
		rec.LeadID, rec.ContractorID,
	))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.BillingRecord{}, false, fmt.Errorf("check billing record: %w", err)
	}

	created, err := scanRecord(tx.QueryRow(ctx,
		`INSERT INTO billing_records (
			id, lead_id, contractor_id, assignment_id, call_sid,
			amount_cents, duration_seconds, charge_status, payment_method, charge_id,
			dispute_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+recordColumns,
		rec.ID,
		rec.LeadID,
		rec.ContractorID,
		rec.AssignmentID,
		rec.CallSid,
		rec.AmountCents,
		rec.DurationSeconds,
		rec.ChargeStatus,
		rec.PaymentMethod,
		rec.ChargeID,
		domain.DisputeNone,
	))
	if err != nil {
		return domain.BillingRecord{}, false, fmt.Errorf("create billing record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BillingRecord{}, false, fmt.Errorf("commit billing tx: %w", err)
	}

	return created, true, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.BillingRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM billing_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BillingRecord{}, apperr.NotFound(recordNotFoundMsg)
		}
		return domain.BillingRecord{}, fmt.Errorf("get billing record: %w", err)
	}
	return rec, nil
}

// SetChargeOutcome records the gateway result for a stored record. A failed
// charge carries the gateway's reason in failure_reason.
func (r *Repository) SetChargeOutcome(ctx context.Context, id uuid.UUID, status, method string, chargeID, failureReason *string) error {
	query := `
		UPDATE billing_records
		SET charge_status = $2, payment_method = $3, charge_id = $4,
			failure_reason = $5, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, status, method, chargeID, failureReason)
	if err != nil {
		return fmt.Errorf("set charge outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(recordNotFoundMsg)
	}
	return nil
}

// OpenDispute flags the record as disputed. Only undisputed records can be
// disputed.
func (r *Repository) OpenDispute(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE billing_records
		SET dispute_status = $2, dispute_reason = $3, updated_at = now()
		WHERE id = $1 AND dispute_status = $4
	`

	tag, err := r.pool.Exec(ctx, query, id, domain.DisputeOpen, reason, domain.DisputeNone)
	if err != nil {
		return fmt.Errorf("open dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("billing record already disputed or not found")
	}
	return nil
}

// ResolveDispute settles an open dispute with the given resolution.
func (r *Repository) ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, creditCents int64) (domain.BillingRecord, error) {
	query := `
		UPDATE billing_records
		SET dispute_status = $2, credited_cents = $3, updated_at = now()
		WHERE id = $1 AND dispute_status = $4
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id, resolution, creditCents, domain.DisputeOpen))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BillingRecord{}, apperr.Conflict("no open dispute on billing record")
		}
		return domain.BillingRecord{}, fmt.Errorf("resolve dispute: %w", err)
	}
	return rec, nil
}

// ListParams filters the billing record listing.
type ListParams struct {
	ContractorID *uuid.UUID `form:"contractorId"`
	ChargeStatus string     `form:"chargeStatus"`
	Disputed     bool       `form:"disputed"`
	Page         int        `form:"page"`
	PageSize     int        `form:"pageSize"`
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.BillingRecord, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 25
	}

	where := ` WHERE 1=1`
	args := []any{}
	idx := 1
	if params.ContractorID != nil {
		where += fmt.Sprintf(" AND contractor_id = $%d", idx)
		args = append(args, *params.ContractorID)
		idx++
	}
	if params.ChargeStatus != "" {
		where += fmt.Sprintf(" AND charge_status = $%d", idx)
		args = append(args, params.ChargeStatus)
		idx++
	}
	if params.Disputed {
		where += fmt.Sprintf(" AND dispute_status <> $%d", idx)
		args = append(args, domain.DisputeNone)
		idx++
	}

	query := `SELECT ` + recordColumns + ` FROM billing_records` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	var out []domain.BillingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan billing record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate billing records: %w", err)
	}
	return out, nil
}

// UpsertCallLog records an inbound call, updating status and duration when
// the provider posts follow-up callbacks for the same CallSid.
func (r *Repository) UpsertCallLog(ctx context.Context, log domain.CallLog) error {
	query := `
		INSERT INTO call_logs (
			id, call_sid, tracking_number, from_number, to_number,
			lead_id, contractor_id, status, duration_seconds, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (call_sid) DO UPDATE
		SET status = EXCLUDED.status,
			duration_seconds = EXCLUDED.duration_seconds,
			updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.CallSid,
		log.TrackingNumber,
		log.FromNumber,
		log.ToNumber,
		log.LeadID,
		log.ContractorID,
		log.Status,
		log.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("upsert call log: %w", err)
	}
	return nil
}

// GetCallLog returns the call log for a provider call id.
func (r *Repository) GetCallLog(ctx context.Context, callSid string) (domain.CallLog, error) {
	query := `
		SELECT id, call_sid, tracking_number, from_number, to_number,
			lead_id, contractor_id, status, duration_seconds, created_at, updated_at
		FROM call_logs
		WHERE call_sid = $1
	`

	var log domain.CallLog
	err := r.pool.QueryRow(ctx, query, callSid).Scan(
		&log.ID,
		&log.CallSid,
		&log.TrackingNumber,
		&log.FromNumber,
		&log.ToNumber,
		&log.LeadID,
		&log.ContractorID,
		&log.Status,
		&log.DurationSeconds,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CallLog{}, apperr.NotFound("call log not found")
		}
		return domain.CallLog{}, fmt.Errorf("get call log: %w", err)
	}
	return log, nil
}
