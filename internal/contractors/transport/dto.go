// Package transport defines the request and response shapes for the
// contractors HTTP surface.
package transport

import (
	"time"

	"leadmarket_backend/internal/contractors/domain"
)

// RegisterContractorRequest is the admin payload for onboarding a contractor.
type RegisterContractorRequest struct {
	BusinessName           string   `json:"businessName" binding:"required,min=2,max=100"`
	ContactName           string   `json:"contactName" binding:"required,min=2,max=100"`
	Email                 string   `json:"email" binding:"required,email"`
	Phone                 string   `json:"phone" binding:"required"`
	ServiceZips           []string `json:"serviceZips" binding:"required,min=1,dive,len=5"`
	Specializations       []string `json:"specializations" binding:"required,min=1"`
	PrimarySpecialization string   `json:"primarySpecialization" binding:"required"`
	MaxLeadsPerDay        *int     `json:"maxLeadsPerDay" binding:"omitempty,min=1"`
	MaxLeadsPerWeek       *int     `json:"maxLeadsPerWeek" binding:"omitempty,min=1"`
	SubscriptionTier      string   `json:"subscriptionTier" binding:"required,oneof=starter pro elite"`
}

// UpdateCapsRequest adjusts a contractor's self-imposed volume limits.
type UpdateCapsRequest struct {
	MaxLeadsPerDay  *int `json:"maxLeadsPerDay" binding:"omitempty,min=1"`
	MaxLeadsPerWeek *int `json:"maxLeadsPerWeek" binding:"omitempty,min=1"`
}

// SetAcceptingRequest toggles lead delivery.
type SetAcceptingRequest struct {
	Accepting *bool `json:"accepting" binding:"required"`
}

// TopUpRequest adds prepaid credit to a contractor's balance.
type TopUpRequest struct {
	AmountCents int64 `json:"amountCents" binding:"required,min=100"`
}

// ContractorResponse is the API view of a contractor.
type ContractorResponse struct {
	ID                    string    `json:"id"`
	BusinessName           string    `json:"businessName"`
	ContactName           string    `json:"contactName"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone"`
	ServiceZips           []string  `json:"serviceZips"`
	Specializations       []string  `json:"specializations"`
	PrimarySpecialization string    `json:"primarySpecialization"`
	Rating                *float64  `json:"rating"`
	ConversionRate        *float64  `json:"conversionRate"`
	AvgResponseMinutes    *int      `json:"avgResponseMinutes"`
	MaxLeadsPerDay        *int      `json:"maxLeadsPerDay"`
	MaxLeadsPerWeek       *int      `json:"maxLeadsPerWeek"`
	SubscriptionTier      string    `json:"subscriptionTier"`
	SubscriptionStatus    string    `json:"subscriptionStatus"`
	CreditBalanceCents    int64     `json:"creditBalanceCents"`
	HasPaymentMethod      bool      `json:"hasPaymentMethod"`
	IsAcceptingLeads      bool      `json:"isAcceptingLeads"`
	IsVerified            bool      `json:"isVerified"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"createdAt"`
}

// ListContractorsResponse is one page of contractors.
type ListContractorsResponse struct {
	Items    []ContractorResponse `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

// FromDomain maps a contractor entity to its API view.
func FromDomain(c domain.Contractor) ContractorResponse {
	return ContractorResponse{
		ID:                    c.ID.String(),
		BusinessName:           c.BusinessName,
		ContactName:           c.ContactName,
		Email:                 c.Email,
		Phone:                 c.Phone,
		ServiceZips:           c.ServiceZips,
		Specializations:       c.Specializations,
		PrimarySpecialization: c.PrimarySpecialization,
		Rating:                c.Rating,
		ConversionRate:        c.ConversionRate,
		AvgResponseMinutes:    c.AvgResponseMinutes,
		MaxLeadsPerDay:        c.MaxLeadsPerDay,
		MaxLeadsPerWeek:       c.MaxLeadsPerWeek,
		SubscriptionTier:      c.SubscriptionTier,
		SubscriptionStatus:    c.SubscriptionStatus,
		CreditBalanceCents:    c.CreditBalanceCents,
		HasPaymentMethod:      c.HasPaymentMethod,
		IsAcceptingLeads:      c.IsAcceptingLeads,
		IsVerified:            c.IsVerified,
		Status:                c.Status,
		CreatedAt:             c.CreatedAt,
	}
}
