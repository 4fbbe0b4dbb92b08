package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	assignmentrepo "leadmarket_backend/internal/assignments/repository"
	assignmentservice "leadmarket_backend/internal/assignments/service"
	contractorrepo "leadmarket_backend/internal/contractors/repository"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/scheduler"
	"leadmarket_backend/internal/tracking"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/db"
	"leadmarket_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	trackingModule := tracking.NewModule(pool, eventBus, log)
	contractorStore := contractorrepo.New(pool)
	assignmentSvc := assignmentservice.New(
		assignmentrepo.New(pool),
		contractorStore,
		trackingModule.Service(),
		eventBus,
		log,
	)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to build task client", "error", err)
		panic("failed to build task client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	worker, err := scheduler.NewWorker(cfg, trackingModule.Service(), contractorStore, assignmentSvc, log)
	if err != nil {
		log.Error("failed to build worker", "error", err)
		panic("failed to build worker: " + err.Error())
	}

	periodic := scheduler.NewPeriodic(client, cfg, log)
	go periodic.Run(ctx)

	worker.Run(ctx)
	log.Info("scheduler stopped")
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
