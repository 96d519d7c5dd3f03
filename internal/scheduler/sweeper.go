// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

// Sweeper drops expired state and reports how many entries it removed.
type Sweeper interface {
	Sweep() int
}

// SweepScheduler periodically sweeps expired rate-limit windows so the
// in-process limiter does not grow with every client it has ever seen.
type SweepScheduler struct {
	name     string
	target   Sweeper
	schedule string

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewSweepScheduler creates a scheduler that sweeps target on schedule.
func NewSweepScheduler(name string, target Sweeper, schedule string) *SweepScheduler {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &SweepScheduler{
		name:     name,
		target:   target,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start begins sweeping. It stops on its own when ctx is cancelled.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	slog.Info("sweep scheduler started", "target", s.name, "schedule", s.schedule)

	// Monitor for context cancellation
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce performs a single sweep.
func (s *SweepScheduler) RunOnce() {
	if removed := s.target.Sweep(); removed > 0 {
		slog.Debug("swept expired entries", "target", s.name, "removed", removed)
	}
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	<-s.cron.Stop().Done()
	s.isRunning = false

	slog.Info("sweep scheduler stopped", "target", s.name)
}

// IsRunning reports whether the scheduler is active.
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
