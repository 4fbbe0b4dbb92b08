// Package handler exposes the admin HTTP surface for contractor management.
package handler

import (
	"net/http"

	"leadmarket_backend/internal/contractors/repository"
	"leadmarket_backend/internal/contractors/service"
	"leadmarket_backend/internal/contractors/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for contractors.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new contractors handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers contractor routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Register)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/caps", h.UpdateCaps)
	rg.PATCH("/:id/accepting", h.SetAccepting)
	rg.POST("/:id/verify", h.Verify)
	rg.POST("/:id/suspend", h.Suspend)
	rg.POST("/:id/reactivate", h.Reactivate)
	rg.POST("/:id/credit/topup", h.TopUpCredit)
}

func (h *Handler) List(c *gin.Context) {
	var params repository.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) UpdateCaps(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateCapsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	if err := h.svc.UpdateCaps(c.Request.Context(), id, req); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetAccepting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.SetAcceptingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Accepting == nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.SetAccepting(c.Request.Context(), id, *req.Accepting); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Verify(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Verify(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Suspend(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Suspend(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Reactivate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Reactivate(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) TopUpCredit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	resp, err := h.svc.TopUpCredit(c.Request.Context(), id, req.AmountCents)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid contractor id", nil)
		return uuid.Nil, false
	}
	return id, true
}
