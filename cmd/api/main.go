package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	assignmentrepo "leadmarket_backend/internal/assignments/repository"
	assignmentservice "leadmarket_backend/internal/assignments/service"
	"leadmarket_backend/internal/billing"
	"leadmarket_backend/internal/billing/payments"
	"leadmarket_backend/internal/contractors"
	"leadmarket_backend/internal/email"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/http/router"
	"leadmarket_backend/internal/leads"
	"leadmarket_backend/internal/metrics"
	"leadmarket_backend/internal/notification"
	"leadmarket_backend/internal/sms"
	"leadmarket_backend/internal/subscriptions"
	"leadmarket_backend/internal/tracking"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/db"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	metrics.Register()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	redisClient := newRedisClient(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	contractorsModule := contractors.NewModule(pool, eventBus, log, val)
	trackingModule := tracking.NewModule(pool, eventBus, log)

	assignmentStore := assignmentrepo.New(pool)
	assignmentSvc := assignmentservice.New(
		assignmentStore,
		contractorsModule.Repository(),
		trackingModule.Service(),
		eventBus,
		log,
	)

	leadsModule := leads.NewModule(pool, redisClient, contractorsModule.Matcher(), assignmentSvc, eventBus, log)

	gateway := newPaymentGateway(cfg, log)
	statusCallbackURL := cfg.GetAppBaseURL() + "/api/v1/webhooks/twilio/status"
	billingModule := billing.NewModule(
		pool,
		trackingModule.Service(),
		contractorsModule.Repository(),
		assignmentSvc,
		leadsModule.Service(),
		gateway,
		eventBus,
		log,
		statusCallbackURL,
	)

	subscriptionsModule := subscriptions.NewModule(pool, contractorsModule.Repository(), eventBus, log, cfg)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.NewModule(
		newEmailSender(cfg, log),
		newSMSSender(cfg, log),
		contractorsModule.Repository(),
		log,
	)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			contractorsModule,
			trackingModule,
			billingModule,
			subscriptionsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// newRedisClient builds the Redis client backing the per-IP submission
// counter. A missing URL disables the counter; validation fails open.
func newRedisClient(cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		log.Warn("REDIS_URL not configured; submission volume checks disabled")
		return nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Error("invalid REDIS_URL; submission volume checks disabled", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func newPaymentGateway(cfg *config.Config, log *logger.Logger) payments.Gateway {
	if !cfg.GetPaymentEnabled() {
		log.Warn("payment gateway disabled; card charges will be declined")
		return payments.DisabledGateway{}
	}
	return payments.NewStripe(cfg)
}

func newEmailSender(cfg *config.Config, log *logger.Logger) email.Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return email.NewNoopSender(log)
	}
	return email.NewSMTPSender(cfg)
}

func newSMSSender(cfg *config.Config, log *logger.Logger) sms.Sender {
	if !cfg.GetSMSEnabled() {
		return sms.NewNoopSender(log)
	}
	return sms.NewTwilioSender(cfg)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", lastErr)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
