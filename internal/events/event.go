// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadmarket_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a validated lead is persisted.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	Category    string    `json:"category"`
	Score       int       `json:"score"`
	PriceCents  int64     `json:"priceCents"`
	ServiceType string    `json:"serviceType"`
	Zip         string    `json:"zip"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadAssigned is published when a lead is assigned to a contractor.
// The notification module renders contractor email/SMS from this payload.
type LeadAssigned struct {
	BaseEvent
	LeadID           uuid.UUID  `json:"leadId"`
	AssignmentID     uuid.UUID  `json:"assignmentId"`
	ContractorID     uuid.UUID  `json:"contractorId"`
	ContractorName   string     `json:"contractorName"`
	ContractorEmail  string     `json:"contractorEmail"`
	ContractorPhone  string     `json:"contractorPhone"`
	ConsumerName     string     `json:"consumerName"`
	ServiceType      string     `json:"serviceType"`
	Category         string     `json:"category"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	Zip              string     `json:"zip"`
	Timeline         string     `json:"timeline"`
	PriceCents       int64      `json:"priceCents"`
	TrackingNumber   *string    `json:"trackingNumber,omitempty"`
	ResponseDeadline time.Time  `json:"responseDeadline"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadNoContractor is published when matching finds no eligible contractor.
// The lead itself is persisted with a terminal status; this event exists for
// operational visibility and nurture follow-up.
type LeadNoContractor struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason"`
}

func (e LeadNoContractor) EventName() string { return "leads.lead.no_contractor" }

// =============================================================================
// Tracking Pool Domain Events
// =============================================================================

// TrackingPoolExhausted is published when an assignment had to proceed without
// a tracking number. Operationally alertable, never user-facing.
type TrackingPoolExhausted struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e TrackingPoolExhausted) EventName() string { return "tracking.pool.exhausted" }

// =============================================================================
// Billing Domain Events
// =============================================================================

// CallBilled is published after a qualifying call produced a billing record.
// ChargeStatus is "paid" or "failed"; the record exists either way.
type CallBilled struct {
	BaseEvent
	BillingRecordID uuid.UUID `json:"billingRecordId"`
	LeadID          uuid.UUID `json:"leadId"`
	ContractorID    uuid.UUID `json:"contractorId"`
	AmountCents     int64     `json:"amountCents"`
	ChargeStatus    string    `json:"chargeStatus"`
	CallSid         string    `json:"callSid"`
	DurationSeconds int       `json:"durationSeconds"`
}

func (e CallBilled) EventName() string { return "billing.call.billed" }

// BillingDisputeResolved is published when an admin resolves a dispute.
type BillingDisputeResolved struct {
	BaseEvent
	BillingRecordID uuid.UUID `json:"billingRecordId"`
	LeadID          uuid.UUID `json:"leadId"`
	ContractorID    uuid.UUID `json:"contractorId"`
	Resolution      string    `json:"resolution"` // "credited" or "partial_credit"
	CreditCents     int64     `json:"creditCents"`
}

func (e BillingDisputeResolved) EventName() string { return "billing.dispute.resolved" }

// =============================================================================
// Subscription Domain Events
// =============================================================================

// ContractorCreditDebited is published after a successful credit debit.
type ContractorCreditDebited struct {
	BaseEvent
	ContractorID uuid.UUID `json:"contractorId"`
	AmountCents  int64     `json:"amountCents"`
	BalanceCents int64     `json:"balanceCents"`
}

func (e ContractorCreditDebited) EventName() string { return "subscriptions.credit.debited" }

// ContractorSubscriptionChanged is published when a subscription webhook
// updates a contractor's tier or status.
type ContractorSubscriptionChanged struct {
	BaseEvent
	ContractorID uuid.UUID `json:"contractorId"`
	Tier         string    `json:"tier"`
	Status       string    `json:"status"`
}

func (e ContractorSubscriptionChanged) EventName() string { return "subscriptions.subscription.changed" }
