package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/domain"
)

// SchedulerState is the lifecycle state of the periodic sync loop.
type SchedulerState string

const (
	SchedulerStopped SchedulerState = "stopped"
	SchedulerRunning SchedulerState = "running"
	SchedulerSyncing SchedulerState = "syncing"
)

// syncRunner abstracts SyncService for the scheduler, so tests can drive the
// loop with a scripted runner.
type syncRunner interface {
	SyncAll(ctx context.Context) (*domain.SyncResult, error)
}

// Scheduler runs the sync orchestrator on a fixed interval, immediately on
// Start, and on foreground notifications. One run is in flight at most:
// ticks and foreground events during a run are dropped, not queued.
//
// On failure it schedules a single retry after 2^n minutes, where n is the
// number of consecutive failures, up to MaxRetries; after that it goes quiet
// until the next regular tick and the counter resets. A success also resets
// the counter.
//
// The clock and timer are injectable so the backoff ladder is testable
// without wall-clock delays.
type Scheduler struct {
	Runner     syncRunner
	Logger     *slog.Logger
	Interval   time.Duration
	MaxRetries int

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu         sync.Mutex
	state      SchedulerState
	retryCount int
	lastSync   time.Time
	lastErr    error

	stopCh chan struct{}
	doneCh chan struct{}
	fgCh   chan struct{}
}

// NewScheduler creates a stopped scheduler. interval defaults to 1 hour,
// maxRetries to 3.
func NewScheduler(runner syncRunner, logger *slog.Logger, interval time.Duration, maxRetries int) *Scheduler {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Scheduler{
		Runner:     runner,
		Logger:     logger,
		Interval:   interval,
		MaxRetries: maxRetries,
		now:        time.Now,
		after:      time.After,
		state:      SchedulerStopped,
	}
}

// Start launches the loop: an immediate sync, then interval ticks. Calling
// Start on a non-stopped scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state != SchedulerStopped {
		s.mu.Unlock()
		return
	}
	s.state = SchedulerRunning
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.fgCh = make(chan struct{})
	s.mu.Unlock()

	go s.run()
	s.Logger.Info("sync scheduler started", "interval", s.Interval)
}

// Stop shuts the loop down and waits for it to exit. An in-flight sync is
// allowed to complete or fail naturally; only pending timers are cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == SchedulerStopped {
		s.mu.Unlock()
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh

	s.mu.Lock()
	s.state = SchedulerStopped
	s.retryCount = 0
	s.mu.Unlock()
	s.Logger.Info("sync scheduler stopped")
}

// Foreground notifies the scheduler the app came to the foreground, which
// triggers an immediate sync. If a run is already in flight the notification
// is dropped.
func (s *Scheduler) Foreground() {
	s.mu.Lock()
	if s.state != SchedulerRunning {
		s.mu.Unlock()
		return
	}
	fgCh := s.fgCh
	s.mu.Unlock()

	select {
	case fgCh <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSync returns when the last successful run finished, zero if never.
func (s *Scheduler) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// LastError returns the error from the most recent failed run, nil after a
// success.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// RetryCount returns the consecutive failure count driving the backoff.
func (s *Scheduler) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	s.runSync()

	for {
		intervalCh := s.after(s.Interval)

		var retryCh <-chan time.Time
		s.mu.Lock()
		if s.retryCount > 0 {
			retryCh = s.after(time.Duration(1<<s.retryCount) * time.Minute)
		}
		s.mu.Unlock()

		select {
		case <-intervalCh:
			s.runSync()
		case <-retryCh:
			s.runSync()
		case <-s.fgCh:
			s.runSync()
		case <-s.stopCh:
			return
		}
	}
}

// runSync executes one sync and updates the retry ladder. It runs on the
// loop goroutine, so ticks arriving meanwhile find no receiver and are
// dropped, which is exactly the single-flight rule.
func (s *Scheduler) runSync() {
	s.setState(SchedulerSyncing)
	defer s.setState(SchedulerRunning)

	result, err := s.Runner.SyncAll(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		// A manual sync beat us to it; not a failure of ours.
		if errors.Is(err, ErrSyncInProgress) {
			return
		}

		s.lastErr = err
		s.retryCount++
		if s.retryCount > s.MaxRetries {
			s.Logger.Warn("sync failed, retry budget exhausted until next interval tick",
				"max_retries", s.MaxRetries,
				"error", err,
			)
			s.retryCount = 0
			return
		}

		s.Logger.Warn("sync failed, retry scheduled",
			"attempt", s.retryCount,
			"retry_in", time.Duration(1<<s.retryCount)*time.Minute,
			"error", err,
		)
		return
	}

	s.lastErr = nil
	s.retryCount = 0
	s.lastSync = result.Timestamp
}

func (s *Scheduler) setState(state SchedulerState) {
	s.mu.Lock()
	// Stop may have already flipped to stopped while a run was finishing.
	if s.state != SchedulerStopped {
		s.state = state
	}
	s.mu.Unlock()
}
