// Package scheduler triggers recurring orchestrator sweeps.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/asset-pipeline/internal/usecase"
)

// Scheduler runs the orchestrator on a fixed interval. On-demand triggers go
// through the same sweep entry point; overlap is harmless because all worker
// coordination lives in the catalog's claim semantics.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  usecase.Sweeper
	interval time.Duration
	timeout  time.Duration
}

// New creates a scheduler sweeping every interval, each run bounded by timeout.
func New(sweeper usecase.Sweeper, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sweeper:  sweeper,
		interval: interval,
		timeout:  timeout,
	}
}

// Start registers the recurring job and starts the cron loop.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	s.cron.Start()
	slog.Info("Scheduler started", "interval", s.interval)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx, nil, usecase.TriggerScheduled); err != nil {
		slog.Error("Scheduled sweep failed", "error", err)
	}
}
