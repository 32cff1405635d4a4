package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"mail-job-intake/internal/config"
	"mail-job-intake/internal/service"
)

// ErrStopTimeout is returned by Stop when the running cycle did not return in time
var ErrStopTimeout = errors.New("scheduler stop timed out")

const defaultStopTimeout = 30 * time.Second

// CycleRunner runs one poll cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) service.CycleResult
}

// fixedDelay waits a constant delay after the previous cycle finished.
// Unlike cron.Every it keeps sub-second precision.
type fixedDelay time.Duration

func (d fixedDelay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// ParseSchedule returns the cron expression when one is configured,
// otherwise the fixed interval.
func ParseSchedule(cfg *config.SchedulerConfig) (cron.Schedule, error) {
	if cfg.Schedule != "" {
		schedule, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}
		return schedule, nil
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be greater than 0")
	}
	return fixedDelay(cfg.Interval), nil
}

// Scheduler runs poll cycles one after another: a cycle runs as soon as the
// scheduler starts, and the next one is scheduled only after it returns.
type Scheduler struct {
	schedule    cron.Schedule
	runner      CycleRunner
	log         *logrus.Entry
	stopTimeout time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	done      chan struct{}

	lastRun    time.Time
	nextRun    time.Time
	lastResult *service.CycleResult
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, runner CycleRunner) (*Scheduler, error) {
	schedule, err := ParseSchedule(cfg)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		schedule:    schedule,
		runner:      runner,
		log:         logrus.WithField("component", "scheduler"),
		stopTimeout: defaultStopTimeout,
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	s.isRunning = true

	s.wg.Add(1)
	go s.loop(s.ctx, s.done)

	s.log.Info("Scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	for {
		if result := s.run(ctx); errors.Is(result.Err, service.ErrCycleInProgress) {
			s.log.Warn("Skipped scheduled email check, a manual run is still in progress")
		}

		next := s.schedule.Next(time.Now())
		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) run(ctx context.Context) service.CycleResult {
	result := s.runner.RunCycle(ctx)

	s.mu.Lock()
	if !errors.Is(result.Err, service.ErrCycleInProgress) {
		s.lastRun = result.StartedAt
		s.lastResult = &result
	}
	s.mu.Unlock()

	return result
}

// Stop stops the scheduler and waits up to the stop timeout for the running
// cycle to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.isRunning = false
	s.nextRun = time.Time{}
	done := s.done
	s.mu.Unlock()

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.log.Info("Scheduler stopped gracefully")
		return nil
	case <-timer.C:
		s.log.Warn("Scheduler stop timeout, cycle still running")
		return ErrStopTimeout
	}
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RunOnce runs a poll cycle now, outside the schedule. It returns
// service.ErrCycleInProgress in the result if a cycle is already running.
func (s *Scheduler) RunOnce(ctx context.Context) service.CycleResult {
	s.log.Info("Running email check once")
	return s.run(ctx)
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.nextRun
}

// GetLastRun returns the start time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// LastResult returns the result of the last completed cycle, if any
func (s *Scheduler) LastResult() (service.CycleResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastResult == nil {
		return service.CycleResult{}, false
	}
	return *s.lastResult, true
}

// Wait blocks until the scheduler loop exits or ctx is done
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
