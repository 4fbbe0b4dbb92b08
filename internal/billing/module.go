// Package billing provides the call billing bounded context module.
package billing

import (
	"leadmarket_backend/internal/billing/handler"
	"leadmarket_backend/internal/billing/payments"
	"leadmarket_backend/internal/billing/repository"
	"leadmarket_backend/internal/billing/service"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the billing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the billing module. The tracking,
// contractor, assignment and lead collaborators are passed as ports so the
// module has no compile-time dependency on their concrete services.
func NewModule(
	pool *pgxpool.Pool,
	mappings service.Mappings,
	contractors service.Contractors,
	assignments service.Assignments,
	leads service.Leads,
	gateway payments.Gateway,
	eventBus events.Bus,
	log *logger.Logger,
	statusCallbackURL string,
) *Module {
	repo := repository.New(pool)
	svc := service.New(mappings, repo, contractors, assignments, leads, gateway, eventBus, log, statusCallbackURL)
	h := handler.New(svc, log)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "billing"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts billing routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterWebhookRoutes(ctx.Webhooks)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/billing"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
