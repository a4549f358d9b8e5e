package usecase

import (
	"context"
	"log/slog"
	"time"

	"K10PlusExport/internal/ports"
)

// Scheduler wires the cron driver with scheduled registration.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring registration runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers RegisterPending with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// RunOnce executes one scheduled registration run and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) {
	s.logger.Info("scheduled registration started", "trigger", trigger.Format(time.RFC3339))

	reports, err := s.pipeline.RegisterPending(ctx)
	registered, failed := 0, 0
	for _, report := range reports {
		registered += report.Succeeded()
		failed += len(report.Failed())
	}
	if err != nil {
		s.logger.Error("scheduled registration incomplete", "error", err)
	}
	s.logger.Info("scheduled registration finished",
		"journals", len(reports), "registered", registered, "failed", failed)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
