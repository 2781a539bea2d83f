package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"MetadataExtractor/internal/domain"
	"MetadataExtractor/internal/ports"
)

// Runner executes one extraction run.
type Runner interface {
	Run(ctx context.Context) (RunReport, error)
}

// Scheduler wires the cron-like driver with the pipeline use case.
type Scheduler struct {
	driver ports.Scheduler
	runner Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled extraction run", "trigger", trigger)
		_, err := s.runner.Run(ctx)
		switch {
		case errors.Is(err, domain.ErrCircuitOpen):
			s.logger.Warn("scheduled run stopped by circuit breaker, next trigger retries", "error", err)
		case err != nil:
			s.logger.Error("scheduled run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
