// Package transport defines the HTTP request and response types for leads.
package transport

import (
	"time"

	assignmentdomain "leadmarket_backend/internal/assignments/domain"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/validation"
)

// SubmitLeadRequest is the public lead submission payload.
type SubmitLeadRequest struct {
	FirstName    string `json:"firstName" binding:"required,max=50"`
	LastName     string `json:"lastName" binding:"required,max=50"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	Address      string `json:"address" binding:"max=200"`
	City         string `json:"city" binding:"required,max=100"`
	State        string `json:"state" binding:"required,len=2"`
	Zip          string `json:"zip" binding:"required,len=5"`
	ServiceType  string `json:"serviceType" binding:"required"`
	Timeline     string `json:"timeline" binding:"required"`
	BudgetRange  string `json:"budgetRange" binding:"required"`
	PropertyType string `json:"propertyType" binding:"required"`

	Description           string  `json:"description" binding:"max=2000"`
	PropertyAge           *int    `json:"propertyAge" binding:"omitempty,min=0,max=200"`
	SystemIssue           string  `json:"systemIssue"`
	FormCompletionSeconds *int    `json:"formCompletionSeconds" binding:"omitempty,min=0"`
	UTMSource             *string `json:"utmSource"`
	UTMCampaign           *string `json:"utmCampaign"`
}

// RawLead converts the request into the validation input, attaching the
// submitter's address for rate limiting.
func (r SubmitLeadRequest) RawLead(clientIP string) validation.RawLead {
	return validation.RawLead{
		FirstName:             r.FirstName,
		LastName:              r.LastName,
		Email:                 r.Email,
		Phone:                 r.Phone,
		Address:               r.Address,
		City:                  r.City,
		State:                 r.State,
		Zip:                   r.Zip,
		ServiceType:           r.ServiceType,
		Timeline:              r.Timeline,
		BudgetRange:           r.BudgetRange,
		PropertyType:          r.PropertyType,
		Description:           r.Description,
		PropertyAge:           r.PropertyAge,
		SystemIssue:           r.SystemIssue,
		FormCompletionSeconds: r.FormCompletionSeconds,
		IP:                    clientIP,
	}
}

// SubmitLeadResponse is returned for an accepted submission. Assignment
// details are present only when a contractor was matched.
type SubmitLeadResponse struct {
	LeadID     string              `json:"leadId"`
	Category   string              `json:"category"`
	Score      int                 `json:"score"`
	Confidence int                 `json:"confidence"`
	Status     string              `json:"status"`
	Assignment *AssignmentResponse `json:"assignment,omitempty"`
	Warning    string              `json:"warning,omitempty"`
}

// AssignmentResponse is the assignment slice of a submission response.
type AssignmentResponse struct {
	AssignmentID     string    `json:"assignmentId"`
	ContractorID     string    `json:"contractorId"`
	ContractorName   string    `json:"contractorName"`
	PriceCents       int64     `json:"priceCents"`
	TrackingNumber   *string   `json:"trackingNumber,omitempty"`
	ResponseDeadline time.Time `json:"responseDeadline"`
}

// RejectedResponse is returned for a submission that failed validation.
type RejectedResponse struct {
	Accepted bool     `json:"accepted"`
	Errors   []string `json:"errors"`
}

// LeadResponse is the admin-facing lead representation.
type LeadResponse struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Zip          string    `json:"zip"`
	ServiceType  string    `json:"serviceType"`
	Timeline     string    `json:"timeline"`
	BudgetRange  string    `json:"budgetRange"`
	PropertyType string    `json:"propertyType"`
	Score        int       `json:"score"`
	Category     string    `json:"category"`
	PriceCents   int64     `json:"priceCents"`
	Confidence   int       `json:"confidence"`
	QualityFlags []string  `json:"qualityFlags"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FromDomain converts a lead entity to its response shape.
func FromDomain(l domain.Lead) LeadResponse {
	return LeadResponse{
		ID:           l.ID.String(),
		FirstName:    l.FirstName,
		LastName:     l.LastName,
		Email:        l.Email,
		Phone:        l.Phone,
		City:         l.City,
		State:        l.State,
		Zip:          l.Zip,
		ServiceType:  l.ServiceType,
		Timeline:     l.Timeline,
		BudgetRange:  l.BudgetRange,
		PropertyType: l.PropertyType,
		Score:        l.Score,
		Category:     string(l.Category),
		PriceCents:   l.PriceCents,
		Confidence:   l.Confidence,
		QualityFlags: l.QualityFlags,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt,
	}
}

// AssignmentFromDomain converts an assignment for the submission response.
func AssignmentFromDomain(a *assignmentdomain.Assignment, contractorName string) *AssignmentResponse {
	if a == nil {
		return nil
	}
	return &AssignmentResponse{
		AssignmentID:     a.ID.String(),
		ContractorID:     a.ContractorID.String(),
		ContractorName:   contractorName,
		PriceCents:       a.PriceCents,
		TrackingNumber:   a.TrackingNumber,
		ResponseDeadline: a.ResponseDeadline,
	}
}
