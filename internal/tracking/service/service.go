// Package service manages the tracking number pool lifecycle: claiming a
// number for a new assignment, releasing it after billing, and recycling
// lapsed holds.
package service

import (
	"context"
	"errors"
	"time"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/metrics"
	"leadmarket_backend/internal/tracking/domain"
	"leadmarket_backend/internal/tracking/repository"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// Pool is the persistence port for the tracking number pool.
type Pool interface {
	Add(ctx context.Context, phoneNumber string) (domain.TrackingNumber, error)
	Claim(ctx context.Context, leadID, contractorID uuid.UUID, consumerPhone string, expiresAt time.Time) (domain.TrackingNumber, error)
	GetActiveByNumber(ctx context.Context, phoneNumber string) (domain.TrackingNumber, error)
	Release(ctx context.Context, phoneNumber string) (bool, error)
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context) (domain.PoolStats, error)
}

// Service provides business logic for the tracking number pool.
type Service struct {
	pool     Pool
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new tracking service.
func New(pool Pool, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{pool: pool, eventBus: eventBus, log: log, now: time.Now}
}

// Acquire claims a tracking number for the assignment. When the pool is
// exhausted it returns nil without error: the assignment proceeds without
// call tracking and an exhaustion event is published for alerting.
func (s *Service) Acquire(ctx context.Context, leadID, contractorID uuid.UUID, consumerPhone string) (*domain.TrackingNumber, error) {
	expiresAt := s.now().Add(domain.AssignmentTTL)

	n, err := s.pool.Claim(ctx, leadID, contractorID, consumerPhone, expiresAt)
	if err != nil {
		if errors.Is(err, repository.ErrPoolExhausted) {
			s.log.Warn("tracking pool exhausted, assigning without tracking number",
				"lead_id", leadID.String(),
			)
			metrics.TrackingPoolExhausted.Inc()
			s.eventBus.Publish(ctx, events.TrackingPoolExhausted{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    leadID,
			})
			return nil, nil
		}
		return nil, err
	}

	s.log.Info("tracking number claimed",
		"lead_id", leadID.String(),
		"tracking_number", n.PhoneNumber,
		"expires_at", n.ExpiresAt,
	)
	s.refreshGauges(ctx)

	return &n, nil
}

// ActiveMapping resolves an inbound pool number to its current assignment.
func (s *Service) ActiveMapping(ctx context.Context, phoneNumber string) (domain.TrackingNumber, error) {
	return s.pool.GetActiveByNumber(ctx, phoneNumber)
}

// Release returns the number to the pool once its lead has been billed.
// Releasing twice is harmless.
func (s *Service) Release(ctx context.Context, phoneNumber string) error {
	released, err := s.pool.Release(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if released {
		s.log.Info("tracking number released", "tracking_number", phoneNumber)
		s.refreshGauges(ctx)
	}
	return nil
}

// RecycleExpired sweeps lapsed assignments back into the pool.
func (s *Service) RecycleExpired(ctx context.Context) (int64, error) {
	recycled, err := s.pool.ReleaseExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if recycled > 0 {
		s.log.Info("recycled expired tracking numbers", "count", recycled)
	}
	s.refreshGauges(ctx)
	return recycled, nil
}

// AddNumber seeds a new number into the pool.
func (s *Service) AddNumber(ctx context.Context, phoneNumber string) (domain.TrackingNumber, error) {
	n, err := s.pool.Add(ctx, phoneNumber)
	if err != nil {
		return domain.TrackingNumber{}, err
	}
	s.refreshGauges(ctx)
	return n, nil
}

// Stats returns pool occupancy.
func (s *Service) Stats(ctx context.Context) (domain.PoolStats, error) {
	return s.pool.Stats(ctx)
}

func (s *Service) refreshGauges(ctx context.Context) {
	stats, err := s.pool.Stats(ctx)
	if err != nil {
		s.log.Error("tracking pool stats", "error", err)
		return
	}
	metrics.TrackingPoolAvailable.Set(float64(stats.Available))
	metrics.TrackingPoolUtilization.Set(stats.Utilization)
}
