// Package domain defines the lead assignment entity.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment statuses.
const (
	StatusAssigned  = "assigned"
	StatusContacted = "contacted"
	StatusExpired   = "expired"
)

// Assignment binds one lead to exactly one contractor. The response deadline
// depends on the lead's quality category; billing later flips the status to
// contacted.
type Assignment struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	ContractorID     uuid.UUID
	PriceCents       int64
	TrackingNumber   *string
	Status           string
	ResponseDeadline time.Time
	AssignedAt       time.Time
	ContactedAt      *time.Time
}

// Overdue reports whether the contractor missed the response deadline.
func (a *Assignment) Overdue(now time.Time) bool {
	return a.Status == StatusAssigned && now.After(a.ResponseDeadline)
}
