// Package scheduler triggers sync runs on a fixed minute interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/livinlefevreloca/biosync/internal/apperr"
	"github.com/livinlefevreloca/biosync/internal/metrics"
	"github.com/livinlefevreloca/biosync/internal/orchestrator"
)

// Scheduler owns the background timer. Start, Stop and Reconfigure are the
// only writers of its state.
type Scheduler struct {
	config Config
	runner Runner
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State

	// Per-loop control. Both are nil while stopped.
	shutdown chan struct{}
	done     chan struct{}
}

// New creates a stopped scheduler
func New(config Config, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		config: config,
		runner: runner,
		logger: logger,
		now:    time.Now,
		state:  State{IntervalMinutes: config.IntervalMinutes},
	}
	metrics.RecordSchedulerState(false, config.IntervalMinutes)
	return s, nil
}

// Start begins triggering runs every intervalMinutes. The first run is due
// one interval from now. Calling Start while running replaces the interval
// and the due time on the existing timer.
func (s *Scheduler) Start(intervalMinutes int32) error {
	if err := validateInterval(intervalMinutes); err != nil {
		s.logger.Warn("scheduler start rejected", "interval", intervalMinutes, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(intervalMinutes)
	return nil
}

func (s *Scheduler) startLocked(intervalMinutes int32) {
	restart := s.state.Running
	s.state = State{
		Running:         true,
		IntervalMinutes: intervalMinutes,
		NextRunAt:       s.now().Add(minutes(intervalMinutes)),
	}

	if s.shutdown == nil {
		s.shutdown = make(chan struct{})
		s.done = make(chan struct{})
		go s.run(s.shutdown, s.done)
	}

	metrics.RecordSchedulerState(true, intervalMinutes)
	if restart {
		s.logger.Info("scheduler interval replaced", "interval", intervalMinutes, "next_run_at", s.state.NextRunAt)
	} else {
		s.logger.Info("scheduler started", "interval", intervalMinutes, "next_run_at", s.state.NextRunAt)
	}
}

// Stop prevents the next scheduled run from starting. A run already in
// progress is left to complete. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.shutdown == nil {
		return
	}

	close(s.shutdown)
	s.shutdown = nil
	s.done = nil
	s.state.Running = false
	s.state.NextRunAt = time.Time{}

	metrics.RecordSchedulerState(false, s.state.IntervalMinutes)
	s.logger.Info("scheduler stopped")
}

// Reconfigure changes the interval. A running scheduler restarts its timer
// with the new interval; a stopped one keeps the value for display.
func (s *Scheduler) Reconfigure(intervalMinutes int32) error {
	if err := validateInterval(intervalMinutes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Running {
		s.startLocked(intervalMinutes)
		return nil
	}
	s.state.IntervalMinutes = intervalMinutes
	metrics.RecordSchedulerState(false, intervalMinutes)
	return nil
}

// State returns a copy of the current scheduler state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Shutdown stops the timer and waits for the loop to exit, including any
// scheduled run it is executing, or for ctx to end.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.stopLocked()
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the timer loop. It polls rather than sleeping for the interval so
// that a stop is seen within one poll.
func (s *Scheduler) run(shutdown <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return

		case <-ticker.C:
			s.iteration(shutdown)
		}
	}
}

// iteration starts a run if one is due
func (s *Scheduler) iteration(shutdown <-chan struct{}) {
	now := s.now()

	s.mu.Lock()
	// A loop replaced by Stop and Start must not act on the new state
	if s.shutdown != shutdown || now.Before(s.state.NextRunAt) {
		s.mu.Unlock()
		return
	}
	interval := s.state.IntervalMinutes
	s.state.NextRunAt = now.Add(minutes(interval))
	next := s.state.NextRunAt
	s.mu.Unlock()

	s.logger.Info("scheduled sync starting", "interval", interval)

	// Scheduled runs are never cancelled mid-flight
	result, err := s.runner.TryRunOnce(context.Background(), orchestrator.TriggerScheduled)
	if errors.Is(err, apperr.ErrRunInProgress) {
		s.logger.Warn("scheduled sync skipped, a run is already in progress", "next_run_at", next)
		return
	}

	s.logger.Info("scheduled sync finished",
		"success", result.Success,
		"message", result.Message,
		"next_run_at", next)
}

func minutes(n int32) time.Duration {
	return time.Duration(n) * time.Minute
}
