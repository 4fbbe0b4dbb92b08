// Package service implements per-call billing: routing inbound calls through
// tracking numbers, qualifying completed calls, charging exactly once, and
// settling disputes.
package service

import (
	"context"
	"errors"
	"fmt"

	assignmentdomain "leadmarket_backend/internal/assignments/domain"
	"leadmarket_backend/internal/billing/domain"
	"leadmarket_backend/internal/billing/payments"
	"leadmarket_backend/internal/billing/repository"
	"leadmarket_backend/internal/billing/transport"
	"leadmarket_backend/internal/billing/twiml"
	contractordomain "leadmarket_backend/internal/contractors/domain"
	"leadmarket_backend/internal/events"
	leaddomain "leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/metrics"
	trackingdomain "leadmarket_backend/internal/tracking/domain"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"

	"github.com/google/uuid"
)

// Call log statuses written by the proxy.
const (
	callStatusInProgress   = "in-progress"
	callStatusUnmapped     = "unmapped"
	callStatusUnauthorized = "unauthorized"
	callStatusCompleted    = "completed"
)

const declineMessage = "This number is not currently active. Please check your lead details."

// Mappings resolves tracking numbers to their assignments.
type Mappings interface {
	ActiveMapping(ctx context.Context, phoneNumber string) (trackingdomain.TrackingNumber, error)
	Release(ctx context.Context, phoneNumber string) error
}

// Records is the persistence port for billing records and call logs.
type Records interface {
	CreateIfAbsent(ctx context.Context, rec domain.BillingRecord) (domain.BillingRecord, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.BillingRecord, error)
	SetChargeOutcome(ctx context.Context, id uuid.UUID, status, method string, chargeID, failureReason *string) error
	OpenDispute(ctx context.Context, id uuid.UUID, reason string) error
	ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, creditCents int64) (domain.BillingRecord, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.BillingRecord, error)
	UpsertCallLog(ctx context.Context, log domain.CallLog) error
	GetCallLog(ctx context.Context, callSid string) (domain.CallLog, error)
}

// Contractors is the contractor persistence port billing needs.
type Contractors interface {
	GetByID(ctx context.Context, id uuid.UUID) (contractordomain.Contractor, error)
	DebitCredit(ctx context.Context, contractorID uuid.UUID, amountCents int64) (bool, error)
	CreditBalance(ctx context.Context, contractorID uuid.UUID, amountCents int64) error
}

// Assignments is the assignment port billing needs.
type Assignments interface {
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (assignmentdomain.Assignment, error)
	MarkContacted(ctx context.Context, leadID uuid.UUID) error
}

// Leads is the lead port billing needs. The lead names the charge on the
// contractor's statement and is advanced to contacted once billing
// confirms the call.
type Leads interface {
	Get(ctx context.Context, id uuid.UUID) (leaddomain.Lead, error)
	MarkContacted(ctx context.Context, leadID uuid.UUID) error
}

// Service implements the call billing state machine.
type Service struct {
	mappings    Mappings
	records     Records
	contractors Contractors
	assignments Assignments
	leads       Leads
	gateway     payments.Gateway
	eventBus    events.Bus
	log         *logger.Logger
	callbackURL string
}

// New creates a new billing service. callbackURL is the absolute URL Twilio
// posts dial outcomes to.
func New(
	mappings Mappings,
	records Records,
	contractors Contractors,
	assignments Assignments,
	leads Leads,
	gateway payments.Gateway,
	eventBus events.Bus,
	log *logger.Logger,
	callbackURL string,
) *Service {
	return &Service{
		mappings:    mappings,
		records:     records,
		contractors: contractors,
		assignments: assignments,
		leads:       leads,
		gateway:     gateway,
		eventBus:    eventBus,
		log:         log,
		callbackURL: callbackURL,
	}
}

// HandleInboundCall routes a call arriving on a tracking number. Only the
// assigned contractor's number may use the bridge; everyone else hears a
// decline message.
func (s *Service) HandleInboundCall(ctx context.Context, call transport.VoiceWebhook) (string, error) {
	mapping, err := s.mappings.ActiveMapping(ctx, call.To)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			s.log.Warn("call to unmapped tracking number", "to", call.To, "call_sid", call.CallSid)
			s.logCall(ctx, call, nil, callStatusUnmapped)
			return twiml.Decline(declineMessage)
		}
		return "", err
	}

	contractor, err := s.contractors.GetByID(ctx, *mapping.ContractorID)
	if err != nil {
		return "", err
	}

	if !phone.SameNumber(call.From, contractor.Phone) {
		s.log.Warn("unauthorized caller on tracking number",
			"call_sid", call.CallSid,
			"tracking_number", call.To,
			"contractor_id", contractor.ID.String(),
		)
		s.logCall(ctx, call, &mapping, callStatusUnauthorized)
		return twiml.Decline(declineMessage)
	}

	if mapping.ConsumerPhone == nil {
		return "", apperr.Internal("tracking number has no consumer phone")
	}

	s.logCall(ctx, call, &mapping, callStatusInProgress)

	s.log.Info("bridging contractor to consumer",
		"call_sid", call.CallSid,
		"lead_id", mapping.LeadID.String(),
		"contractor_id", contractor.ID.String(),
	)

	return twiml.Connect(*mapping.ConsumerPhone, s.callbackURL)
}

// HandleCallStatus processes the dial outcome. Completed calls above the
// duration threshold produce exactly one billing record per lead and
// contractor pair, together with a one-shot charge; everything else is
// logged and dropped.
func (s *Service) HandleCallStatus(ctx context.Context, status transport.StatusWebhook) error {
	mapping, err := s.mappings.ActiveMapping(ctx, status.To)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			// Late or duplicate callback after the number was released.
			s.log.Info("status callback for released tracking number",
				"call_sid", status.CallSid, "to", status.To)
			return nil
		}
		return err
	}

	if err := s.records.UpsertCallLog(ctx, domain.CallLog{
		ID:              uuid.New(),
		CallSid:         status.CallSid,
		TrackingNumber:  status.To,
		FromNumber:      status.From,
		ToNumber:        status.To,
		LeadID:          mapping.LeadID,
		ContractorID:    mapping.ContractorID,
		Status:          status.CallStatus,
		DurationSeconds: status.DurationSeconds,
	}); err != nil {
		return err
	}

	if status.CallStatus != callStatusCompleted {
		return nil
	}

	if !domain.Billable(status.DurationSeconds) {
		// Short calls never bill and keep the number assigned so the
		// contractor can call back.
		s.log.Info("call below billing threshold",
			"call_sid", status.CallSid,
			"lead_id", mapping.LeadID.String(),
			"duration_seconds", status.DurationSeconds,
		)
		metrics.BillingOutcomes.WithLabelValues("skipped_short_call").Inc()
		return nil
	}

	return s.bill(ctx, mapping, status)
}

func (s *Service) bill(ctx context.Context, mapping trackingdomain.TrackingNumber, status transport.StatusWebhook) error {
	leadID := *mapping.LeadID
	contractorID := *mapping.ContractorID

	assignment, err := s.assignments.GetByLeadID(ctx, leadID)
	if err != nil {
		return err
	}

	record, created, err := s.records.CreateIfAbsent(ctx, domain.BillingRecord{
		ID:              uuid.New(),
		LeadID:          leadID,
		ContractorID:    contractorID,
		AssignmentID:    assignment.ID,
		CallSid:         status.CallSid,
		AmountCents:     assignment.PriceCents,
		DurationSeconds: status.DurationSeconds,
		ChargeStatus:    domain.ChargePending,
	})
	if err != nil {
		return err
	}
	if !created {
		// Another callback already billed this lead. Still make sure the
		// number goes back to the pool.
		s.log.Info("billing record already exists, skipping charge",
			"lead_id", leadID.String(),
			"call_sid", status.CallSid,
		)
		metrics.BillingOutcomes.WithLabelValues("skipped_duplicate").Inc()
		return s.mappings.Release(ctx, status.To)
	}

	chargeStatus, method, chargeID, failureReason := s.charge(ctx, record, s.chargeDescription(ctx, leadID))

	if err := s.records.SetChargeOutcome(ctx, record.ID, chargeStatus, method, chargeID, failureReason); err != nil {
		return err
	}

	// The lead is contacted regardless of whether the charge cleared:
	// failed charges go to dunning, not back to matching.
	if err := s.leads.MarkContacted(ctx, leadID); err != nil {
		s.log.Error("advance lead after billing", "lead_id", leadID.String(), "error", err)
	}
	if err := s.assignments.MarkContacted(ctx, leadID); err != nil {
		s.log.Error("advance assignment after billing", "lead_id", leadID.String(), "error", err)
	}

	if err := s.mappings.Release(ctx, status.To); err != nil {
		s.log.Error("release tracking number after billing", "error", err)
	}

	s.log.BillingOutcome(leadID.String(), contractorID.String(), chargeStatus, record.AmountCents)
	metrics.BillingOutcomes.WithLabelValues(chargeStatus).Inc()

	s.eventBus.Publish(ctx, events.CallBilled{
		BaseEvent:       events.NewBaseEvent(),
		BillingRecordID: record.ID,
		LeadID:          leadID,
		ContractorID:    contractorID,
		AmountCents:     record.AmountCents,
		ChargeStatus:    chargeStatus,
		CallSid:         status.CallSid,
		DurationSeconds: status.DurationSeconds,
	})

	return nil
}

// charge attempts the prepaid balance first and falls back to the card on
// file. The returned status is paid or failed; the record is never dropped,
// and a failed charge carries the gateway's reason.
func (s *Service) charge(ctx context.Context, record domain.BillingRecord, description string) (string, string, *string, *string) {
	debited, err := s.contractors.DebitCredit(ctx, record.ContractorID, record.AmountCents)
	if err != nil {
		s.log.Error("debit contractor credit", "contractor_id", record.ContractorID.String(), "error", err)
	}
	if debited {
		contractor, err := s.contractors.GetByID(ctx, record.ContractorID)
		if err == nil {
			s.eventBus.Publish(ctx, events.ContractorCreditDebited{
				BaseEvent:    events.NewBaseEvent(),
				ContractorID: record.ContractorID,
				AmountCents:  record.AmountCents,
				BalanceCents: contractor.CreditBalanceCents,
			})
		}
		return domain.ChargePaid, domain.MethodCredit, nil, nil
	}

	chargeID, err := s.gateway.Charge(ctx, record.ContractorID, record.AmountCents, description, record.CallSid)
	if err != nil {
		reason := err.Error()
		var declined *payments.DeclinedError
		if errors.As(err, &declined) {
			reason = declined.Message
			s.log.Error("card charge declined",
				"call_sid", record.CallSid,
				"contractor_id", record.ContractorID.String(),
				"reason", reason,
			)
		} else {
			s.log.Error("payment gateway error", "call_sid", record.CallSid, "error", err)
		}
		return domain.ChargeFailed, domain.MethodCard, nil, &reason
	}

	return domain.ChargePaid, domain.MethodCard, &chargeID, nil
}

// chargeDescription names the purchase on the contractor's statement. Falls
// back to the lead id when the lead cannot be loaded.
func (s *Service) chargeDescription(ctx context.Context, leadID uuid.UUID) string {
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		s.log.Warn("load lead for charge description", "lead_id", leadID.String(), "error", err)
		return fmt.Sprintf("Lead %s call billing", leadID)
	}
	return fmt.Sprintf("%s %s lead in %s, %s", lead.Category, lead.ServiceType, lead.City, lead.State)
}

// OpenDispute flags a billing record for review.
func (s *Service) OpenDispute(ctx context.Context, recordID uuid.UUID, reason string) error {
	return s.records.OpenDispute(ctx, recordID, reason)
}

// ResolveDispute settles an open dispute. Credited amounts go back to the
// contractor's prepaid balance.
func (s *Service) ResolveDispute(ctx context.Context, recordID uuid.UUID, req transport.ResolveDisputeRequest) (domain.BillingRecord, error) {
	creditCents := req.CreditCents
	switch req.Resolution {
	case domain.DisputeCredited:
		rec, err := s.records.GetByID(ctx, recordID)
		if err != nil {
			return domain.BillingRecord{}, err
		}
		creditCents = rec.AmountCents
	case domain.DisputeDenied:
		creditCents = 0
	case domain.DisputePartial:
		if creditCents <= 0 {
			return domain.BillingRecord{}, apperr.Validation("partial credit requires a positive amount")
		}
	}

	resolved, err := s.records.ResolveDispute(ctx, recordID, req.Resolution, creditCents)
	if err != nil {
		return domain.BillingRecord{}, err
	}

	if creditCents > 0 {
		if err := s.contractors.CreditBalance(ctx, resolved.ContractorID, creditCents); err != nil {
			return domain.BillingRecord{}, err
		}
		// A credited call should not hold the number until the recycler
		// runs. Release is idempotent.
		s.releaseTrackingNumber(ctx, resolved.LeadID)
	}

	s.log.Info("billing dispute resolved",
		"billing_record_id", resolved.ID.String(),
		"resolution", req.Resolution,
		"credit_cents", creditCents,
	)

	s.eventBus.Publish(ctx, events.BillingDisputeResolved{
		BaseEvent:       events.NewBaseEvent(),
		BillingRecordID: resolved.ID,
		LeadID:          resolved.LeadID,
		ContractorID:    resolved.ContractorID,
		Resolution:      req.Resolution,
		CreditCents:     creditCents,
	})

	return resolved, nil
}

func (s *Service) releaseTrackingNumber(ctx context.Context, leadID uuid.UUID) {
	assignment, err := s.assignments.GetByLeadID(ctx, leadID)
	if err != nil || assignment.TrackingNumber == nil {
		return
	}
	if err := s.mappings.Release(ctx, *assignment.TrackingNumber); err != nil {
		s.log.Error("release tracking number after dispute credit",
			"lead_id", leadID.String(), "error", err)
	}
}

// ListRecords returns a filtered page of billing records.
func (s *Service) ListRecords(ctx context.Context, params repository.ListParams) ([]domain.BillingRecord, error) {
	return s.records.List(ctx, params)
}

func (s *Service) logCall(ctx context.Context, call transport.VoiceWebhook, mapping *trackingdomain.TrackingNumber, status string) {
	log := domain.CallLog{
		ID:             uuid.New(),
		CallSid:        call.CallSid,
		TrackingNumber: call.To,
		FromNumber:     call.From,
		ToNumber:       call.To,
		Status:         status,
	}
	if mapping != nil {
		log.LeadID = mapping.LeadID
		log.ContractorID = mapping.ContractorID
	}
	if err := s.records.UpsertCallLog(ctx, log); err != nil {
		s.log.Error("write call log", "call_sid", call.CallSid, "error", err)
	}
}
