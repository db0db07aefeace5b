// Package scheduler drives periodic reconciliation passes over all watched accounts.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/usecase"
)

// BatchRunner reconciles every active account once.
type BatchRunner interface {
	ReconcileAll(ctx context.Context) (*usecase.BatchReport, error)
}

// Scheduler runs a full pass immediately and then every interval. Passes never overlap:
// a tick that fires during a long pass is dropped by the ticker.
type Scheduler struct {
	runner   BatchRunner
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a new Scheduler.
func New(runner BatchRunner, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start runs passes until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler shutting down")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.runner.ReconcileAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Msg("reconciliation pass aborted")
	}
	if report == nil {
		return
	}

	event := s.logger.Info()
	if len(report.Failures) > 0 {
		event = s.logger.Warn()
	}
	event.
		Int("accounts", report.Accounts).
		Int("succeeded", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failures)).
		Int("new_deposits", report.NewDeposits).
		Dur("elapsed", report.Elapsed).
		Msg("reconciliation pass finished")
}
