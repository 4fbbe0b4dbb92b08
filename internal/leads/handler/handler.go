// Package handler exposes the public submission endpoint and the admin lead
// listing.
package handler

import (
	"net/http"

	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/service"
	"leadmarket_backend/internal/leads/transport"
	"leadmarket_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for leads.
type Handler struct {
	svc *service.Service
}

// New creates a new leads handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes registers the consumer-facing submission endpoint.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.Submit)
}

// RegisterAdminRoutes registers the lead management routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}

// Submit handles a public lead submission. Validation rejections come back
// as 422 with the reason list; an accepted lead is 201 even when matching
// could not place it, with a warning explaining why.
func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		Raw:         req.RawLead(c.ClientIP()),
		UTMSource:   req.UTMSource,
		UTMCampaign: req.UTMCampaign,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	if !result.Accepted {
		httpkit.JSON(c, http.StatusUnprocessableEntity, transport.RejectedResponse{
			Accepted: false,
			Errors:   result.Errors,
		})
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.SubmitLeadResponse{
		LeadID:     result.Lead.ID.String(),
		Category:   string(result.Lead.Category),
		Score:      result.Lead.Score,
		Confidence: result.Lead.Confidence,
		Status:     string(result.Lead.Status),
		Assignment: transport.AssignmentFromDomain(result.Assignment, result.ContractorName),
		Warning:    result.Warning,
	})
}

func (h *Handler) List(c *gin.Context) {
	var params repository.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	leads, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		items = append(items, transport.FromDomain(l))
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomain(lead))
}
