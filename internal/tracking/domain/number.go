// Package domain defines the tracking number pool entities.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tracking number lifecycle statuses.
const (
	StatusAvailable = "available"
	StatusAssigned  = "assigned"
)

// AssignmentTTL is how long a claimed tracking number stays bound to a lead
// before the recycler reclaims it.
const AssignmentTTL = 5 * 24 * time.Hour

// TrackingNumber is a pooled phone number routed through the call proxy.
// While assigned it maps inbound contractor calls to one lead.
type TrackingNumber struct {
	ID            uuid.UUID
	PhoneNumber   string
	Status        string
	LeadID        *uuid.UUID
	ContractorID  *uuid.UUID
	ConsumerPhone *string
	AssignedAt    *time.Time
	ExpiresAt     *time.Time
	TimesRecycled int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Expired reports whether an assigned number's hold has lapsed.
func (n *TrackingNumber) Expired(now time.Time) bool {
	return n.Status == StatusAssigned && n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// PoolStats summarizes pool occupancy for monitoring.
type PoolStats struct {
	Total       int     `json:"total"`
	Available   int     `json:"available"`
	Assigned    int     `json:"assigned"`
	Recycled    int64   `json:"recycled"`
	Utilization float64 `json:"utilization"`
}
