// Package handler exposes the billing webhook and admin HTTP surface.
// Webhook endpoints answer 2xx only when the callback was fully processed;
// a 5xx makes the provider retry.
package handler

import (
	"net/http"

	"leadmarket_backend/internal/billing/repository"
	"leadmarket_backend/internal/billing/service"
	"leadmarket_backend/internal/billing/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for billing.
type Handler struct {
	svc *service.Service
	log *logger.Logger
}

// New creates a new billing handler.
func New(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterWebhookRoutes registers the Twilio callbacks.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/twilio/voice", h.Voice)
	rg.POST("/twilio/status", h.Status)
}

// RegisterAdminRoutes registers the billing record admin routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/records", h.ListRecords)
	rg.POST("/records/:id/dispute", h.OpenDispute)
	rg.POST("/records/:id/resolve", h.ResolveDispute)
}

// Voice answers the inbound-call webhook with TwiML.
func (h *Handler) Voice(c *gin.Context) {
	call, err := transport.ParseVoiceWebhook(c.Request)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid webhook payload")
		return
	}

	xml, err := h.svc.HandleInboundCall(c.Request.Context(), call)
	if err != nil {
		h.log.Error("inbound call webhook", "call_sid", call.CallSid, "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	c.Data(http.StatusOK, "application/xml", []byte(xml))
}

// Status processes the dial-outcome webhook.
func (h *Handler) Status(c *gin.Context) {
	status, err := transport.ParseStatusWebhook(c.Request)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if err := h.svc.HandleCallStatus(c.Request.Context(), status); err != nil {
		h.log.Error("call status webhook", "call_sid", status.CallSid, "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListRecords(c *gin.Context) {
	var params repository.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	records, err := h.svc.ListRecords(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": records})
}

func (h *Handler) OpenDispute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.DisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := h.svc.OpenDispute(c.Request.Context(), id, req.Reason); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ResolveDispute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	resolved, err := h.svc.ResolveDispute(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resolved)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid billing record id", nil)
		return uuid.Nil, false
	}
	return id, true
}
