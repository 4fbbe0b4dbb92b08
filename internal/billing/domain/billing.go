// Package domain defines call billing entities and the qualification rule.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MinBillableSeconds is the connect-call threshold. Calls lasting this long
// or less never bill: they count as misdials or voicemail bounces.
const MinBillableSeconds = 30

// Billable reports whether a completed call of the given duration qualifies
// for billing.
func Billable(durationSeconds int) bool {
	return durationSeconds > MinBillableSeconds
}

// Charge statuses. A billing record exists for every qualifying call whether
// or not the charge cleared; failed charges go to dunning, never back to the
// pool of unbilled calls.
const (
	ChargePending = "pending"
	ChargePaid    = "paid"
	ChargeFailed  = "failed"
)

// Payment methods recorded on a billing record.
const (
	MethodCredit = "credit_balance"
	MethodCard   = "card"
)

// Dispute statuses.
const (
	DisputeNone     = "none"
	DisputeOpen     = "open"
	DisputeCredited = "credited"
	DisputePartial  = "partial_credit"
	DisputeDenied   = "denied"
)

// BillingRecord is the billable outcome of one qualifying call. At most one
// record exists per lead and contractor pair.
type BillingRecord struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	ContractorID    uuid.UUID
	AssignmentID    uuid.UUID
	CallSid         string
	AmountCents     int64
	DurationSeconds int
	ChargeStatus    string
	PaymentMethod   string
	ChargeID        *string
	FailureReason   *string
	DisputeStatus   string
	DisputeReason   *string
	CreditedCents   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CallLog records every inbound call on a tracking number, billable or not.
type CallLog struct {
	ID              uuid.UUID
	CallSid         string
	TrackingNumber  string
	FromNumber      string
	ToNumber        string
	LeadID          *uuid.UUID
	ContractorID    *uuid.UUID
	Status          string
	DurationSeconds int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
