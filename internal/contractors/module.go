// Package contractors provides the contractors bounded context module.
package contractors

import (
	"leadmarket_backend/internal/contractors/handler"
	"leadmarket_backend/internal/contractors/matching"
	"leadmarket_backend/internal/contractors/repository"
	"leadmarket_backend/internal/contractors/service"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the contractors bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
	matcher *matching.Matcher
}

// NewModule creates and initializes the contractors module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc, val)
	m := matching.New(repo, log)

	return &Module{handler: h, service: svc, repo: repo, matcher: m}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contractors"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes contractor persistence for the assignment and billing flows.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Matcher returns the lead-to-contractor matcher.
func (m *Module) Matcher() *matching.Matcher {
	return m.matcher
}

// RegisterRoutes mounts contractor admin routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/contractors")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
