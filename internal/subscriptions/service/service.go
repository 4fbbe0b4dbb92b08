// Package service keeps contractor subscriptions in sync with the payment
// provider and maintains the prepaid credit ledger.
package service

import (
	"context"

	contractordomain "leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/subscriptions/domain"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// Contractors is the contractor persistence port subscriptions needs.
type Contractors interface {
	GetByID(ctx context.Context, id uuid.UUID) (contractordomain.Contractor, error)
	SetSubscription(ctx context.Context, contractorID uuid.UUID, tier, status string) error
	SetPaymentMethod(ctx context.Context, contractorID uuid.UUID, hasMethod bool) error
}

// Ledger is the persistence port for credit transactions.
type Ledger interface {
	Record(ctx context.Context, tx domain.CreditTransaction) error
	ListByContractor(ctx context.Context, contractorID uuid.UUID, limit int) ([]domain.CreditTransaction, error)
}

// Service provides subscription lifecycle and ledger logic.
type Service struct {
	contractors Contractors
	ledger      Ledger
	eventBus    events.Bus
	log         *logger.Logger
}

// New creates a new subscriptions service.
func New(contractors Contractors, ledger Ledger, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{contractors: contractors, ledger: ledger, eventBus: eventBus, log: log}
}

var validTiers = map[string]bool{
	contractordomain.TierStarter: true,
	contractordomain.TierPro:     true,
	contractordomain.TierElite:   true,
}

var validStatuses = map[string]bool{
	contractordomain.SubscriptionActive:   true,
	contractordomain.SubscriptionPastDue:  true,
	contractordomain.SubscriptionCanceled: true,
}

// ApplySubscriptionChange updates the contractor's tier and status from a
// provider webhook and announces the change.
func (s *Service) ApplySubscriptionChange(ctx context.Context, contractorID uuid.UUID, tier, status string) error {
	if !validTiers[tier] {
		return apperr.Validation("unknown subscription tier")
	}
	if !validStatuses[status] {
		return apperr.Validation("unknown subscription status")
	}

	if err := s.contractors.SetSubscription(ctx, contractorID, tier, status); err != nil {
		return err
	}

	s.log.Info("subscription changed",
		"contractor_id", contractorID.String(),
		"tier", tier,
		"status", status,
	)

	s.eventBus.Publish(ctx, events.ContractorSubscriptionChanged{
		BaseEvent:    events.NewBaseEvent(),
		ContractorID: contractorID,
		Tier:         tier,
		Status:       status,
	})

	return nil
}

// ApplyPaymentMethodChange records whether the provider holds a chargeable
// payment method for the contractor.
func (s *Service) ApplyPaymentMethodChange(ctx context.Context, contractorID uuid.UUID, hasMethod bool) error {
	return s.contractors.SetPaymentMethod(ctx, contractorID, hasMethod)
}

// ListTransactions returns a contractor's credit ledger.
func (s *Service) ListTransactions(ctx context.Context, contractorID uuid.UUID, limit int) ([]domain.CreditTransaction, error) {
	return s.ledger.ListByContractor(ctx, contractorID, limit)
}

// RegisterLedgerHandlers subscribes the ledger to the billing events that
// move credit. Ledger writes are best-effort: a failed append is logged and
// never blocks billing.
func (s *Service) RegisterLedgerHandlers(bus events.Bus) {
	bus.Subscribe(events.ContractorCreditDebited{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		debited, ok := e.(events.ContractorCreditDebited)
		if !ok {
			return nil
		}
		return s.appendEntry(ctx, domain.CreditTransaction{
			ID:           uuid.New(),
			ContractorID: debited.ContractorID,
			Type:         domain.TypeLeadCharge,
			AmountCents:  -debited.AmountCents,
			BalanceAfter: debited.BalanceCents,
		})
	}))

	bus.Subscribe(events.BillingDisputeResolved{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		resolved, ok := e.(events.BillingDisputeResolved)
		if !ok || resolved.CreditCents == 0 {
			return nil
		}
		contractor, err := s.contractors.GetByID(ctx, resolved.ContractorID)
		if err != nil {
			return err
		}
		ref := resolved.BillingRecordID.String()
		return s.appendEntry(ctx, domain.CreditTransaction{
			ID:           uuid.New(),
			ContractorID: resolved.ContractorID,
			Type:         domain.TypeDisputeCredit,
			AmountCents:  resolved.CreditCents,
			BalanceAfter: contractor.CreditBalanceCents,
			Reference:    &ref,
		})
	}))
}

func (s *Service) appendEntry(ctx context.Context, tx domain.CreditTransaction) error {
	if err := s.ledger.Record(ctx, tx); err != nil {
		s.log.Error("append credit ledger entry",
			"contractor_id", tx.ContractorID.String(),
			"error", err,
		)
	}
	return nil
}

