// Package handler exposes the tracking pool admin and cron HTTP surface.
package handler

import (
	"net/http"

	"leadmarket_backend/internal/tracking/service"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/phone"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the tracking number pool.
type Handler struct {
	svc *service.Service
}

// New creates a new tracking handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes registers the pool management routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.Stats)
	rg.POST("/numbers", h.AddNumber)
}

// RegisterInternalRoutes registers the cron-triggered recycler endpoint.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.POST("/recycle", h.Recycle)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

type addNumberRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

func (h *Handler) AddNumber(c *gin.Context) {
	var req addNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	n, err := h.svc.AddNumber(c.Request.Context(), phone.NormalizeE164(req.PhoneNumber))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, gin.H{
		"id":          n.ID.String(),
		"phoneNumber": n.PhoneNumber,
		"status":      n.Status,
	})
}

// Recycle releases expired mappings and reports the resulting pool shape so
// the cron caller can alert on utilization.
func (h *Handler) Recycle(c *gin.Context) {
	recycled, err := h.svc.RecycleExpired(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"recycled":    recycled,
		"available":   stats.Available,
		"assigned":    stats.Assigned,
		"total":       stats.Total,
		"utilization": stats.Utilization,
	})
}
