// Package handler exposes the subscription webhook and ledger endpoints.
package handler

import (
	"crypto/subtle"
	"net/http"

	"leadmarket_backend/internal/subscriptions/service"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for subscriptions.
type Handler struct {
	svc    *service.Service
	secret string
}

// New creates a new subscriptions handler.
func New(svc *service.Service, cfg config.SubscriptionWebhookConfig) *Handler {
	return &Handler{svc: svc, secret: cfg.GetSubscriptionWebhookSecret()}
}

// RegisterWebhookRoutes registers the payment provider callbacks.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/subscriptions", h.verifySecret)
	group.POST("/change", h.SubscriptionChange)
	group.POST("/payment-method", h.PaymentMethodChange)
}

// RegisterAdminRoutes registers the credit ledger routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/:contractorId/transactions", h.ListTransactions)
}

// verifySecret authenticates provider webhooks with a shared secret header.
func (h *Handler) verifySecret(c *gin.Context) {
	if h.secret == "" {
		httpkit.Error(c, http.StatusServiceUnavailable, "subscription webhooks not configured", nil)
		c.Abort()
		return
	}
	provided := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		httpkit.Error(c, http.StatusUnauthorized, "invalid webhook secret", nil)
		c.Abort()
		return
	}
	c.Next()
}

type subscriptionChangeRequest struct {
	ContractorID string `json:"contractorId" binding:"required,uuid"`
	Tier         string `json:"tier" binding:"required"`
	Status       string `json:"status" binding:"required"`
}

func (h *Handler) SubscriptionChange(c *gin.Context) {
	var req subscriptionChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	contractorID, err := uuid.Parse(req.ContractorID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid contractor id", nil)
		return
	}

	if err := h.svc.ApplySubscriptionChange(c.Request.Context(), contractorID, req.Tier, req.Status); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

type paymentMethodRequest struct {
	ContractorID     string `json:"contractorId" binding:"required,uuid"`
	HasPaymentMethod *bool  `json:"hasPaymentMethod" binding:"required"`
}

func (h *Handler) PaymentMethodChange(c *gin.Context) {
	var req paymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.HasPaymentMethod == nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	contractorID, err := uuid.Parse(req.ContractorID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid contractor id", nil)
		return
	}

	if err := h.svc.ApplyPaymentMethodChange(c.Request.Context(), contractorID, *req.HasPaymentMethod); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	contractorID, err := uuid.Parse(c.Param("contractorId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid contractor id", nil)
		return
	}

	limit := 50
	transactions, err := h.svc.ListTransactions(c.Request.Context(), contractorID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": transactions})
}
