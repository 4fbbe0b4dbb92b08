// Package service provides business logic for contractor management.
package service

import (
	"context"
	"strings"
	"time"

	"leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/contractors/repository"
	"leadmarket_backend/internal/contractors/transport"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"
	"leadmarket_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Service provides business logic for contractors.
type Service struct {
	repo     *repository.Repository
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a new contractors service.
func New(repo *repository.Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log}
}

// Register onboards a new contractor. New contractors start unverified,
// without a payment method, and not accepting leads; activation requires an
// explicit verification step.
func (s *Service) Register(ctx context.Context, req transport.RegisterContractorRequest) (transport.ContractorResponse, error) {
	normalizedPhone := phone.NormalizeE164(req.Phone)

	if req.MaxLeadsPerDay != nil && req.MaxLeadsPerWeek != nil && *req.MaxLeadsPerWeek < *req.MaxLeadsPerDay {
		return transport.ContractorResponse{}, apperr.Validation("weekly cap cannot be below daily cap")
	}

	if !contains(req.Specializations, req.PrimarySpecialization) {
		return transport.ContractorResponse{}, apperr.Validation("primary specialization must be one of the listed specializations")
	}

	if _, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email)); err == nil {
		return transport.ContractorResponse{}, apperr.Conflict("contractor with this email already exists")
	} else if apperr.GetKind(err) != apperr.KindNotFound {
		return transport.ContractorResponse{}, err
	}

	now := time.Now()
	contractor := domain.Contractor{
		ID:                    uuid.New(),
		BusinessName:          sanitize.Text(req.BusinessName),
		ContactName:           sanitize.Text(req.ContactName),
		Email:                 normalizeEmail(req.Email),
		Phone:                 normalizedPhone,
		ServiceZips:           req.ServiceZips,
		Specializations:       req.Specializations,
		PrimarySpecialization: req.PrimarySpecialization,
		MaxLeadsPerDay:        req.MaxLeadsPerDay,
		MaxLeadsPerWeek:       req.MaxLeadsPerWeek,
		SubscriptionTier:      req.SubscriptionTier,
		SubscriptionStatus:    domain.SubscriptionActive,
		Status:                domain.StatusActive,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	created, err := s.repo.Create(ctx, contractor)
	if err != nil {
		return transport.ContractorResponse{}, err
	}

	s.log.Info("contractor registered",
		"contractor_id", created.ID.String(),
		"tier", created.SubscriptionTier,
	)

	return transport.FromDomain(created), nil
}

// Get returns one contractor.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ContractorResponse, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ContractorResponse{}, err
	}
	return transport.FromDomain(c), nil
}

// List returns a filtered page of contractors.
func (s *Service) List(ctx context.Context, params repository.ListParams) (transport.ListContractorsResponse, error) {
	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListContractorsResponse{}, err
	}

	items := make([]transport.ContractorResponse, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, transport.FromDomain(c))
	}

	return transport.ListContractorsResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}, nil
}

// Verify completes onboarding review for a contractor.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetVerified(ctx, id); err != nil {
		return err
	}
	s.log.Info("contractor verified", "contractor_id", id.String())
	return nil
}

// UpdateCaps adjusts the contractor's daily and weekly lead limits.
func (s *Service) UpdateCaps(ctx context.Context, id uuid.UUID, req transport.UpdateCapsRequest) error {
	if req.MaxLeadsPerDay != nil && req.MaxLeadsPerWeek != nil && *req.MaxLeadsPerWeek < *req.MaxLeadsPerDay {
		return apperr.Validation("weekly cap cannot be below daily cap")
	}
	return s.repo.UpdateCaps(ctx, id, req.MaxLeadsPerDay, req.MaxLeadsPerWeek)
}

// SetAccepting toggles lead delivery for the contractor.
func (s *Service) SetAccepting(ctx context.Context, id uuid.UUID, accepting bool) error {
	return s.repo.SetAcceptingLeads(ctx, id, accepting)
}

// Suspend stops all lead delivery and billing for the contractor.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetStatus(ctx, id, domain.StatusSuspended); err != nil {
		return err
	}
	s.log.Warn("contractor suspended", "contractor_id", id.String())
	return nil
}

// Reactivate returns a suspended contractor to active status.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, domain.StatusActive)
}

// TopUpCredit adds prepaid balance to the contractor.
func (s *Service) TopUpCredit(ctx context.Context, id uuid.UUID, amountCents int64) (transport.ContractorResponse, error) {
	if amountCents <= 0 {
		return transport.ContractorResponse{}, apperr.Validation("top-up amount must be positive")
	}
	if err := s.repo.CreditBalance(ctx, id, amountCents); err != nil {
		return transport.ContractorResponse{}, err
	}
	return s.Get(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
