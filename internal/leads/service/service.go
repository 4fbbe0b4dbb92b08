// Package service orchestrates the lead intake pipeline: validation,
// scoring, persistence, matching and assignment.
package service

import (
	"context"
	"errors"
	"time"

	assignmentdomain "leadmarket_backend/internal/assignments/domain"
	assignmentservice "leadmarket_backend/internal/assignments/service"
	contractordomain "leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/contractors/matching"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/scoring"
	"leadmarket_backend/internal/leads/validation"
	"leadmarket_backend/internal/metrics"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"

	"github.com/google/uuid"
)

// maxAssignAttempts bounds the re-match loop when a capacity slot is lost to
// a concurrent assignment between ranking and reservation.
const maxAssignAttempts = 3

// Store is the lead persistence surface the pipeline needs.
type Store interface {
	Create(ctx context.Context, l *domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) error
	MarkContacted(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params repository.ListParams) ([]domain.Lead, error)
}

// Matcher selects the best contractor for an assignable lead.
type Matcher interface {
	Match(ctx context.Context, lead matching.Lead) (matching.Result, error)
}

// Assigner creates the assignment, reserving capacity and a tracking number.
// It returns assignments.ErrCapacityLost when the chosen contractor's last
// daily slot was taken concurrently; the pipeline then re-matches.
type Assigner interface {
	Assign(ctx context.Context, lead *domain.Lead, contractor *contractordomain.Contractor) (assignmentdomain.Assignment, error)
}

// SubmitInput is a raw submission plus its attribution.
type SubmitInput struct {
	Raw         validation.RawLead
	UTMSource   *string
	UTMCampaign *string
}

// SubmitResult reports what happened to a submission. A rejected submission
// has Accepted false and at least one error; an accepted one carries the
// persisted lead and, when matching succeeded, the assignment.
type SubmitResult struct {
	Accepted   bool
	Errors     []string
	Lead       *domain.Lead
	Assignment *assignmentdomain.Assignment
	// ContractorName is the matched contractor's business name, filled in
	// alongside Assignment for the submitter's confirmation.
	ContractorName string
	// Warning is set when the lead was accepted but could not be assigned
	// (no contractor, at capacity, or a nurture-tier lead).
	Warning string
}

// Service runs the lead pipeline.
type Service struct {
	store    Store
	checker  *validation.Checker
	matcher  Matcher
	assigner Assigner
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates the leads service.
func New(store Store, checker *validation.Checker, matcher Matcher, assigner Assigner, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		checker:  checker,
		matcher:  matcher,
		assigner: assigner,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// Submit runs the full pipeline for one submission. Validation rejections
// return a result, never an error; errors mean the pipeline itself failed.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	validated := s.checker.Validate(ctx, in.Raw)
	if !validated.Valid {
		metrics.LeadsSubmitted.WithLabelValues("rejected").Inc()
		s.log.Info("lead submission rejected",
			"errors", validated.Errors,
			"service_type", in.Raw.ServiceType,
		)
		return SubmitResult{Accepted: false, Errors: validated.Errors}, nil
	}

	scored := scoring.Score(scoring.Input{
		ServiceType:       in.Raw.ServiceType,
		Timeline:          in.Raw.Timeline,
		BudgetRange:       in.Raw.BudgetRange,
		PropertyType:      in.Raw.PropertyType,
		Description:       in.Raw.Description,
		PropertyAge:       in.Raw.PropertyAge,
		SystemIssue:       in.Raw.SystemIssue,
		CompletionSeconds: in.Raw.FormCompletionSeconds,
		ValidationFlags:   validated.Flags,
	})

	lead, err := domain.NewLead(scored.Score, scored.Confidence, scored.Category, scored.Flags)
	if err != nil {
		return SubmitResult{}, err
	}
	s.fillAttributes(lead, in)

	if err := s.store.Create(ctx, lead); err != nil {
		return SubmitResult{}, err
	}

	metrics.LeadsByCategory.WithLabelValues(string(lead.Category)).Inc()
	log := s.log.WithLeadID(lead.ID.String())
	log.Info("lead created",
		"category", string(lead.Category),
		"score", lead.Score,
		"confidence", lead.Confidence,
		"service_type", lead.ServiceType,
		"zip", lead.Zip,
	)

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		Category:    string(lead.Category),
		Score:       lead.Score,
		PriceCents:  lead.PriceCents,
		ServiceType: lead.ServiceType,
		Zip:         lead.Zip,
	})

	if !lead.Category.Assignable() {
		metrics.LeadsSubmitted.WithLabelValues("nurture").Inc()
		return SubmitResult{Accepted: true, Lead: lead, Warning: "nurture_no_assignment"}, nil
	}
	metrics.LeadsSubmitted.WithLabelValues("accepted").Inc()

	assignment, contractor, warning, err := s.matchAndAssign(ctx, lead)
	if err != nil {
		// The lead is persisted and billable state is consistent; surface
		// the acceptance and let the submitter's flow continue.
		log.Error("assignment failed after lead creation", "error", err)
		return SubmitResult{Accepted: true, Lead: lead, Warning: "assignment_failed"}, nil
	}

	result := SubmitResult{Accepted: true, Lead: lead, Assignment: assignment, Warning: warning}
	if contractor != nil {
		result.ContractorName = contractor.BusinessName
	}
	return result, nil
}

func (s *Service) fillAttributes(lead *domain.Lead, in SubmitInput) {
	raw := in.Raw
	lead.FirstName = raw.FirstName
	lead.LastName = raw.LastName
	lead.Email = raw.Email
	lead.Phone = phone.NormalizeE164(raw.Phone)
	lead.Address = raw.Address
	lead.City = raw.City
	lead.State = raw.State
	lead.Zip = raw.Zip
	lead.ServiceType = raw.ServiceType
	lead.Timeline = raw.Timeline
	lead.BudgetRange = raw.BudgetRange
	lead.PropertyType = raw.PropertyType
	lead.Description = raw.Description
	lead.PropertyAge = raw.PropertyAge
	lead.SystemIssue = raw.SystemIssue
	lead.UTMSource = in.UTMSource
	lead.UTMCampaign = in.UTMCampaign
	lead.CreatedAt = s.now()
	lead.UpdatedAt = lead.CreatedAt
}

// matchAndAssign runs the matcher and closes the capacity race: when the
// reservation fails the loop re-matches, since the counts that ranked the
// winner are already stale.
func (s *Service) matchAndAssign(ctx context.Context, lead *domain.Lead) (*assignmentdomain.Assignment, *contractordomain.Contractor, string, error) {
	log := s.log.WithLeadID(lead.ID.String())

	for attempt := 1; attempt <= maxAssignAttempts; attempt++ {
		result, err := s.matcher.Match(ctx, matching.Lead{
			ID:          lead.ID,
			Zip:         lead.Zip,
			ServiceType: lead.ServiceType,
			Category:    lead.Category,
			PriceCents:  lead.PriceCents,
		})
		if err != nil {
			return nil, nil, "", err
		}

		if result.Contractor == nil {
			return nil, nil, result.Reason, s.finishUnassigned(ctx, lead, result.Reason)
		}

		assignment, err := s.assigner.Assign(ctx, lead, result.Contractor)
		if err != nil {
			if errors.Is(err, assignmentservice.ErrCapacityLost) {
				log.Info("re-matching after lost capacity slot",
					"attempt", attempt,
					"contractor_id", result.Contractor.ID.String(),
				)
				continue
			}
			return nil, nil, "", err
		}

		if err := s.store.UpdateStatus(ctx, lead.ID, domain.StatusPending, domain.StatusAssigned); err != nil {
			return nil, nil, "", err
		}
		lead.Status = domain.StatusAssigned

		log.Info("lead assigned",
			"contractor_id", result.Contractor.ID.String(),
			"assignment_id", assignment.ID.String(),
			"price_cents", lead.PriceCents,
		)
		return &assignment, result.Contractor, "", nil
	}

	// Every attempt lost its slot: the market is effectively at capacity.
	return nil, nil, matching.ReasonAtCapacity, s.finishUnassigned(ctx, lead, matching.ReasonAtCapacity)
}

func (s *Service) finishUnassigned(ctx context.Context, lead *domain.Lead, reason string) error {
	next := domain.StatusNoContractor
	if reason == matching.ReasonAtCapacity {
		next = domain.StatusContractorsAtCapacity
	}

	if err := s.store.UpdateStatus(ctx, lead.ID, domain.StatusPending, next); err != nil {
		return err
	}
	lead.Status = next

	s.log.Warn("lead not assigned",
		"lead_id", lead.ID.String(),
		"reason", reason,
	)
	s.eventBus.Publish(ctx, events.LeadNoContractor{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Reason:    reason,
	})
	return nil
}

// Get returns a lead by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return s.store.GetByID(ctx, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.Lead, error) {
	return s.store.List(ctx, params)
}

// MarkContacted advances an assigned lead to contacted. Billing calls this
// after the first qualifying call.
func (s *Service) MarkContacted(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkContacted(ctx, id)
}
