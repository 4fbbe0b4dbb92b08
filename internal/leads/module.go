// Package leads provides the leads bounded context module.
package leads

import (
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/leads/handler"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/service"
	"leadmarket_backend/internal/leads/validation"
	"leadmarket_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module. The matcher and
// assigner come from the contractors and assignments modules; Redis backs
// the per-IP submission counter.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, matcher service.Matcher, assigner service.Assigner, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	var counter validation.SubmissionCounter
	if redisClient != nil {
		counter = validation.NewRedisSubmissionCounter(redisClient)
	}
	checker := validation.NewChecker(repo, counter, log)
	svc := service.New(repo, checker, matcher, assigner, eventBus, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes lead persistence for the billing flow.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the rate-limited public submission endpoint and the
// admin lead routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("", ctx.SubmissionRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
