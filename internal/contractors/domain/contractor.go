// Package domain defines the contractor entity.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tiers and their monthly lead caps.
const (
	TierStarter = "starter"
	TierPro     = "pro"
	TierElite   = "elite"
)

// MonthlyCapForTier returns the monthly lead ceiling for a subscription tier.
func MonthlyCapForTier(tier string) int {
	switch tier {
	case TierElite:
		return 100
	case TierPro:
		return 30
	default:
		return 10
	}
}

// Contractor statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Subscription statuses.
const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Contractor is a service provider receiving leads. Performance metrics are
// nullable; absent values are assumed worst for matching purposes.
type Contractor struct {
	ID           uuid.UUID
	BusinessName string
	ContactName  string
	Email        string
	Phone        string

	ServiceZips           []string
	Specializations       []string
	PrimarySpecialization string

	Rating             *float64
	ConversionRate     *float64
	AvgResponseMinutes *int

	MaxLeadsPerDay  *int
	MaxLeadsPerWeek *int

	SubscriptionTier   string
	SubscriptionStatus string
	CreditBalanceCents int64
	HasPaymentMethod   bool

	IsAcceptingLeads bool
	IsVerified       bool
	Status           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Matchable reports whether this contractor may receive leads at all.
// Suspended or paused contractors are never matched.
func (c *Contractor) Matchable() bool {
	return c.Status == StatusActive && c.IsAcceptingLeads
}

// RatingOrWorst returns the rating, assuming worst when unrated.
func (c *Contractor) RatingOrWorst() float64 {
	if c.Rating == nil {
		return 0
	}
	return *c.Rating
}

// ConversionOrWorst returns the conversion rate, assuming worst when unknown.
func (c *Contractor) ConversionOrWorst() float64 {
	if c.ConversionRate == nil {
		return 0
	}
	return *c.ConversionRate
}

// ResponseMinutesOrWorst returns the average response time, assuming worst
// when unknown.
func (c *Contractor) ResponseMinutesOrWorst() int {
	if c.AvgResponseMinutes == nil {
		return 1 << 20
	}
	return *c.AvgResponseMinutes
}

// MonthlyCap returns the lead ceiling implied by the subscription tier.
func (c *Contractor) MonthlyCap() int {
	return MonthlyCapForTier(c.SubscriptionTier)
}
