// Package tracking provides the tracking number pool bounded context module.
package tracking

import (
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/tracking/handler"
	"leadmarket_backend/internal/tracking/repository"
	"leadmarket_backend/internal/tracking/service"
	"leadmarket_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tracking bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the tracking module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tracking"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts tracking routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/tracking"))
	m.handler.RegisterInternalRoutes(ctx.Internal.Group("/tracking"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
