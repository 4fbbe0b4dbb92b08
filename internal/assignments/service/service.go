// Package service orchestrates handing a matched lead to a contractor:
// capacity reservation, tracking number claim, assignment persistence, and
// the notification event.
package service

import (
	"context"
	"errors"
	"time"

	"leadmarket_backend/internal/assignments/domain"
	contractordomain "leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/events"
	leaddomain "leadmarket_backend/internal/leads/domain"
	trackingdomain "leadmarket_backend/internal/tracking/domain"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrCapacityLost is returned when a concurrent assignment claimed the
// contractor's last free daily slot between matching and reservation. The
// caller should retry matching.
var ErrCapacityLost = errors.New("contractor capacity claimed concurrently")

// AssignmentStore is the persistence port for assignments.
type AssignmentStore interface {
	Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (domain.Assignment, error)
	MarkContacted(ctx context.Context, leadID uuid.UUID, at time.Time) error
	ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Assignment, error)
}

// CapacityReserver claims and returns contractor capacity slots. A
// reservation covers both the daily and the weekly cap atomically.
type CapacityReserver interface {
	ReserveCapacity(ctx context.Context, contractorID uuid.UUID) (bool, error)
	ReleaseCapacity(ctx context.Context, contractorID uuid.UUID) error
}

// NumberAcquirer claims tracking numbers for assignments.
type NumberAcquirer interface {
	Acquire(ctx context.Context, leadID, contractorID uuid.UUID, consumerPhone string) (*trackingdomain.TrackingNumber, error)
	Release(ctx context.Context, phoneNumber string) error
}

// Service orchestrates lead assignment.
type Service struct {
	store    AssignmentStore
	capacity CapacityReserver
	numbers  NumberAcquirer
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new assignments service.
func New(store AssignmentStore, capacity CapacityReserver, numbers NumberAcquirer, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		capacity: capacity,
		numbers:  numbers,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// Assign binds the lead to the contractor. The capacity slot is reserved
// with a conditional increment over both the daily and the weekly cap
// before anything else, so two concurrent assignments cannot both land on
// a contractor's last slot; the loser gets ErrCapacityLost and should
// re-match.
func (s *Service) Assign(ctx context.Context, lead *leaddomain.Lead, contractor *contractordomain.Contractor) (domain.Assignment, error) {
	reserved, err := s.capacity.ReserveCapacity(ctx, contractor.ID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if !reserved {
		s.log.Warn("capacity slot lost to concurrent assignment",
			"lead_id", lead.ID.String(),
			"contractor_id", contractor.ID.String(),
		)
		return domain.Assignment{}, ErrCapacityLost
	}

	number, err := s.numbers.Acquire(ctx, lead.ID, contractor.ID, lead.Phone)
	if err != nil {
		s.rollbackCapacity(ctx, contractor.ID)
		return domain.Assignment{}, err
	}

	now := s.now()
	assignment := domain.Assignment{
		ID:               uuid.New(),
		LeadID:           lead.ID,
		ContractorID:     contractor.ID,
		PriceCents:       lead.PriceCents,
		Status:           domain.StatusAssigned,
		ResponseDeadline: now.Add(lead.Category.ResponseWindow()),
		AssignedAt:       now,
	}
	if number != nil {
		assignment.TrackingNumber = &number.PhoneNumber
	}

	created, err := s.store.Create(ctx, assignment)
	if err != nil {
		s.rollbackCapacity(ctx, contractor.ID)
		if number != nil {
			if relErr := s.numbers.Release(ctx, number.PhoneNumber); relErr != nil {
				s.log.Error("release tracking number after failed assignment", "error", relErr)
			}
		}
		return domain.Assignment{}, err
	}

	s.log.Info("lead assigned",
		"lead_id", lead.ID.String(),
		"contractor_id", contractor.ID.String(),
		"category", string(lead.Category),
		"response_deadline", created.ResponseDeadline,
	)

	s.eventBus.Publish(ctx, events.LeadAssigned{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           lead.ID,
		AssignmentID:     created.ID,
		ContractorID:     contractor.ID,
		ContractorName:   contractor.BusinessName,
		ContractorEmail:  contractor.Email,
		ContractorPhone:  contractor.Phone,
		ConsumerName:     lead.FirstName + " " + lead.LastName,
		ServiceType:      lead.ServiceType,
		Category:         string(lead.Category),
		City:             lead.City,
		State:            lead.State,
		Zip:              lead.Zip,
		Timeline:         lead.Timeline,
		PriceCents:       lead.PriceCents,
		TrackingNumber:   created.TrackingNumber,
		ResponseDeadline: created.ResponseDeadline,
	})

	return created, nil
}

// GetByLeadID returns the assignment for a lead.
func (s *Service) GetByLeadID(ctx context.Context, leadID uuid.UUID) (domain.Assignment, error) {
	return s.store.GetByLeadID(ctx, leadID)
}

// MarkContacted records that billing confirmed contractor contact.
func (s *Service) MarkContacted(ctx context.Context, leadID uuid.UUID) error {
	return s.store.MarkContacted(ctx, leadID, s.now())
}

// ExpireOverdue sweeps assignments past their response deadline.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	expired, err := s.store.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, a := range expired {
		s.log.Warn("assignment response deadline missed",
			"lead_id", a.LeadID.String(),
			"contractor_id", a.ContractorID.String(),
		)
	}
	return len(expired), nil
}

func (s *Service) rollbackCapacity(ctx context.Context, contractorID uuid.UUID) {
	if err := s.capacity.ReleaseCapacity(ctx, contractorID); err != nil {
		s.log.Error("release capacity after failed assignment", "error", err)
	}
}
