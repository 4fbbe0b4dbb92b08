package scheduler

import (
	"context"
	"time"

	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"
)

const defaultSweepInterval = 15 * time.Minute

// Periodic enqueues the recurring maintenance tasks: the tracking number
// sweep and assignment expiry on the sweep interval, and the contractor
// daily counter reset once per day at midnight UTC.
type Periodic struct {
	client        *Client
	sweepInterval time.Duration
	log           *logger.Logger
}

func NewPeriodic(client *Client, cfg config.SchedulerConfig, log *logger.Logger) *Periodic {
	interval := cfg.GetSweepInterval()
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Periodic{client: client, sweepInterval: interval, log: log}
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.client == nil {
		return
	}

	go p.runSweeps(ctx)
	p.runDailyReset(ctx)
}

func (p *Periodic) runSweeps(ctx context.Context) {
	p.enqueueSweeps(ctx)

	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.enqueueSweeps(ctx)
		}
	}
}

func (p *Periodic) enqueueSweeps(ctx context.Context) {
	if err := p.client.Enqueue(ctx, NewTrackingRecycleTask()); err != nil {
		p.log.Error("enqueue tracking recycle failed", "error", err)
	}
	if err := p.client.Enqueue(ctx, NewAssignmentExpiryTask()); err != nil {
		p.log.Error("enqueue assignment expiry failed", "error", err)
	}
}

func (p *Periodic) runDailyReset(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(untilNextMidnightUTC(time.Now())):
			if err := p.client.Enqueue(ctx, NewContractorDailyResetTask()); err != nil {
				p.log.Error("enqueue daily reset failed", "error", err)
			}
		}
	}
}

func untilNextMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}
