// Package domain defines the contractor credit ledger.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TypeTopUp         = "top_up"
	TypeLeadCharge    = "lead_charge"
	TypeDisputeCredit = "dispute_credit"
)

// CreditTransaction is one entry in a contractor's credit ledger. Amounts
// are signed: charges are negative, top-ups and credits positive.
type CreditTransaction struct {
	ID           uuid.UUID
	ContractorID uuid.UUID
	Type         string
	AmountCents  int64
	BalanceAfter int64
	Reference    *string
	CreatedAt    time.Time
}
