package scheduler

import (
	"context"
	"fmt"

	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// NumberRecycler releases tracking numbers whose assignment TTL lapsed.
type NumberRecycler interface {
	RecycleExpired(ctx context.Context) (int64, error)
}

// CapacityResetter zeroes contractor daily lead counters.
type CapacityResetter interface {
	ResetDailyCounters(ctx context.Context) (int64, error)
}

// AssignmentExpirer marks assignments whose response deadline passed.
type AssignmentExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	recycler    NumberRecycler
	capacity    CapacityResetter
	assignments AssignmentExpirer
	log         *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, recycler NumberRecycler, capacity CapacityResetter, assignments AssignmentExpirer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		recycler:    recycler,
		capacity:    capacity,
		assignments: assignments,
		log:         log,
	}

	mux.HandleFunc(TaskTrackingRecycle, w.handleTrackingRecycle)
	mux.HandleFunc(TaskContractorDailyReset, w.handleContractorDailyReset)
	mux.HandleFunc(TaskAssignmentExpiry, w.handleAssignmentExpiry)

	return w, nil
}

func (w *Worker) handleTrackingRecycle(ctx context.Context, _ *asynq.Task) error {
	recycled, err := w.recycler.RecycleExpired(ctx)
	if err != nil {
		return err
	}
	if recycled > 0 {
		w.log.Info("recycled expired tracking numbers", "count", recycled)
	}
	return nil
}

func (w *Worker) handleContractorDailyReset(ctx context.Context, _ *asynq.Task) error {
	reset, err := w.capacity.ResetDailyCounters(ctx)
	if err != nil {
		return err
	}
	w.log.Info("reset contractor daily counters", "count", reset)
	return nil
}

func (w *Worker) handleAssignmentExpiry(ctx context.Context, _ *asynq.Task) error {
	expired, err := w.assignments.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		w.log.Info("expired overdue assignments", "count", expired)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
