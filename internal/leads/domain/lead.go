// Package domain defines the lead entity and its lifecycle invariants.
package domain

import (
	"time"

	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
)

// Category is the coarse quality tier of a lead. It drives price and
// matching strictness and is derived exactly once at creation.
type Category string

const (
	CategoryPlatinum Category = "PLATINUM"
	CategoryGold     Category = "GOLD"
	CategorySilver   Category = "SILVER"
	CategoryBronze   Category = "BRONZE"
	CategoryNurture  Category = "NURTURE"
	CategoryRejected Category = "REJECTED"
)

// PriceCents returns the contractor-facing price for a lead of this category.
func (c Category) PriceCents() int64 {
	switch c {
	case CategoryPlatinum:
		return 25000
	case CategoryGold:
		return 17500
	case CategorySilver:
		return 12500
	case CategoryBronze:
		return 8500
	default:
		return 0
	}
}

// ResponseWindow returns how long a contractor has to make first contact.
func (c Category) ResponseWindow() time.Duration {
	switch c {
	case CategoryPlatinum:
		return 20 * time.Minute
	case CategoryGold:
		return 2 * time.Hour
	case CategorySilver:
		return 24 * time.Hour
	default:
		return 48 * time.Hour
	}
}

// Assignable reports whether leads of this category go through matching.
func (c Category) Assignable() bool {
	switch c {
	case CategoryPlatinum, CategoryGold, CategorySilver, CategoryBronze:
		return true
	default:
		return false
	}
}

// CategoryForScore maps a total score to its category tier.
func CategoryForScore(score int) Category {
	switch {
	case score >= 140:
		return CategoryPlatinum
	case score >= 100:
		return CategoryGold
	case score >= 60:
		return CategorySilver
	case score >= 40:
		return CategoryBronze
	default:
		return CategoryNurture
	}
}

// Status is the lead lifecycle status. Transitions are monotonic.
type Status string

const (
	StatusPending               Status = "pending"
	StatusAssigned              Status = "assigned"
	StatusContacted             Status = "contacted"
	StatusNoContractor          Status = "no_contractor_available"
	StatusContractorsAtCapacity Status = "contractors_at_capacity"
	StatusNurture               Status = "nurture_no_assignment"
)

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusContacted, StatusNoContractor, StatusContractorsAtCapacity, StatusNurture:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the monotonic lifecycle:
// pending -> assigned -> contacted, or pending -> a terminal failure status.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return false
	}
	switch s {
	case StatusPending:
		switch next {
		case StatusAssigned, StatusNoContractor, StatusContractorsAtCapacity, StatusNurture:
			return true
		}
	case StatusAssigned:
		return next == StatusContacted
	}
	return false
}

// Quality flags noted during validation and scoring.
const (
	FlagWorkEmail            = "work_email"
	FlagLocalPhone           = "local_phone"
	FlagDetailedDescription  = "detailed_description"
	FlagUrgencyKeywords      = "urgency_keywords"
	FlagThoughtfulCompletion = "thoughtful_completion"
)

// Lead is a customer's submitted service request after validation and scoring.
// Score, category, price and confidence are fixed at creation and never
// recomputed; only Status advances afterwards.
type Lead struct {
	ID uuid.UUID

	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	Zip       string

	ServiceType  string
	Timeline     string
	BudgetRange  string
	PropertyType string
	Description  string
	PropertyAge  *int
	SystemIssue  string

	UTMSource   *string
	UTMCampaign *string

	Score        int
	Category     Category
	PriceCents   int64
	Confidence   int
	QualityFlags []string

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLead builds a pending lead from scored attributes, enforcing the
// creation invariants (category/price consistency, confidence bounds).
func NewLead(score, confidence int, category Category, flags []string) (*Lead, error) {
	if confidence < 0 || confidence > 95 {
		return nil, apperr.Internal("lead confidence out of range")
	}
	if category == CategoryRejected {
		return nil, apperr.Internal("rejected leads are never persisted")
	}

	status := StatusPending
	if !category.Assignable() {
		status = StatusNurture
	}

	return &Lead{
		ID:           uuid.New(),
		Score:        score,
		Category:     category,
		PriceCents:   category.PriceCents(),
		Confidence:   confidence,
		QualityFlags: flags,
		Status:       status,
	}, nil
}

// Advance moves the lead to the next status, rejecting non-monotonic moves.
func (l *Lead) Advance(next Status) error {
	if !l.Status.CanTransitionTo(next) {
		return apperr.Conflict("invalid lead status transition")
	}
	l.Status = next
	return nil
}
