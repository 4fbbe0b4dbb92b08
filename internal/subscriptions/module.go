// Package subscriptions provides the subscriptions bounded context module.
package subscriptions

import (
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/subscriptions/handler"
	"leadmarket_backend/internal/subscriptions/repository"
	"leadmarket_backend/internal/subscriptions/service"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the subscriptions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the subscriptions module. The credit
// ledger is fed from billing events, so the module subscribes itself on the
// bus at construction time.
func NewModule(pool *pgxpool.Pool, contractors service.Contractors, eventBus events.Bus, log *logger.Logger, cfg config.SubscriptionWebhookConfig) *Module {
	repo := repository.New(pool)
	svc := service.New(contractors, repo, eventBus, log)
	svc.RegisterLedgerHandlers(eventBus)
	h := handler.New(svc, cfg)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "subscriptions"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the provider webhooks and the admin ledger routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterWebhookRoutes(ctx.Webhooks)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/subscriptions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
