// Package repository provides database operations for the tracking number pool.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadmarket_backend/internal/tracking/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const numberNotFoundMsg = "tracking number not found"

// ErrPoolExhausted is returned by Claim when no number is available.
var ErrPoolExhausted = errors.New("tracking number pool exhausted")

// Repository provides database operations for tracking numbers.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new tracking repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const numberColumns = `
	id, phone_number, status, lead_id, contractor_id, consumer_phone,
	assigned_at, expires_at, times_recycled, created_at, updated_at`

func scanNumber(row pgx.Row) (domain.TrackingNumber, error) {
	var n domain.TrackingNumber
	err := row.Scan(
		&n.ID,
		&n.PhoneNumber,
		&n.Status,
		&n.LeadID,
		&n.ContractorID,
		&n.ConsumerPhone,
		&n.AssignedAt,
		&n.ExpiresAt,
		&n.TimesRecycled,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

// Add seeds a new number into the pool.
func (r *Repository) Add(ctx context.Context, phoneNumber string) (domain.TrackingNumber, error) {
	query := `
		INSERT INTO tracking_numbers (id, phone_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING ` + numberColumns

	n, err := scanNumber(r.pool.QueryRow(ctx, query, uuid.New(), phoneNumber, domain.StatusAvailable))
	if err != nil {
		return domain.TrackingNumber{}, fmt.Errorf("add tracking number: %w", err)
	}
	return n, nil
}

// Claim atomically binds one available number to the lead. The claim is a
// single conditional UPDATE over one selected row, so two assignments racing
// for the last available number cannot both win; the loser sees
// ErrPoolExhausted.
func (r *Repository) Claim(ctx context.Context, leadID, contractorID uuid.UUID, consumerPhone string, expiresAt time.Time) (domain.TrackingNumber, error) {
	query := `
		UPDATE tracking_numbers
		SET status = $1,
			lead_id = $2,
			contractor_id = $3,
			consumer_phone = $4,
			assigned_at = now(),
			expires_at = $5,
			updated_at = now()
		WHERE id = (
			SELECT id FROM tracking_numbers
			WHERE status = $6
			ORDER BY updated_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + numberColumns

	n, err := scanNumber(r.pool.QueryRow(ctx, query,
		domain.StatusAssigned, leadID, contractorID, consumerPhone, expiresAt, domain.StatusAvailable,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TrackingNumber{}, ErrPoolExhausted
		}
		return domain.TrackingNumber{}, fmt.Errorf("claim tracking number: %w", err)
	}
	return n, nil
}

// GetActiveByNumber returns the currently assigned mapping for an inbound
// call to the given pool number.
func (r *Repository) GetActiveByNumber(ctx context.Context, phoneNumber string) (domain.TrackingNumber, error) {
	query := `
		SELECT ` + numberColumns + `
		FROM tracking_numbers
		WHERE phone_number = $1 AND status = $2
	`

	n, err := scanNumber(r.pool.QueryRow(ctx, query, phoneNumber, domain.StatusAssigned))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TrackingNumber{}, apperr.NotFound(numberNotFoundMsg)
		}
		return domain.TrackingNumber{}, fmt.Errorf("get tracking number: %w", err)
	}
	return n, nil
}

// Release returns an assigned number to the pool. Releasing an already
// available number is a no-op, so duplicate webhook deliveries are safe.
func (r *Repository) Release(ctx context.Context, phoneNumber string) (bool, error) {
	query := `
		UPDATE tracking_numbers
		SET status = $2,
			lead_id = NULL,
			contractor_id = NULL,
			consumer_phone = NULL,
			assigned_at = NULL,
			expires_at = NULL,
			times_recycled = times_recycled + 1,
			updated_at = now()
		WHERE phone_number = $1 AND status = $3
	`

	tag, err := r.pool.Exec(ctx, query, phoneNumber, domain.StatusAvailable, domain.StatusAssigned)
	if err != nil {
		return false, fmt.Errorf("release tracking number: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseExpired returns all lapsed assignments to the pool and reports how
// many numbers were recycled.
func (r *Repository) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE tracking_numbers
		SET status = $1,
			lead_id = NULL,
			contractor_id = NULL,
			consumer_phone = NULL,
			assigned_at = NULL,
			expires_at = NULL,
			times_recycled = times_recycled + 1,
			updated_at = now()
		WHERE status = $2 AND expires_at <= $3
	`

	tag, err := r.pool.Exec(ctx, query, domain.StatusAvailable, domain.StatusAssigned, now)
	if err != nil {
		return 0, fmt.Errorf("release expired tracking numbers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats returns pool occupancy counters.
func (r *Repository) Stats(ctx context.Context) (domain.PoolStats, error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = $1),
			count(*) FILTER (WHERE status = $2),
			COALESCE(sum(times_recycled), 0)
		FROM tracking_numbers
	`

	var stats domain.PoolStats
	err := r.pool.QueryRow(ctx, query, domain.StatusAvailable, domain.StatusAssigned).Scan(
		&stats.Total,
		&stats.Available,
		&stats.Assigned,
		&stats.Recycled,
	)
	if err != nil {
		return domain.PoolStats{}, fmt.Errorf("tracking pool stats: %w", err)
	}
	if stats.Total > 0 {
		stats.Utilization = float64(stats.Assigned) / float64(stats.Total)
	}
	return stats, nil
}
