// Package scheduler runs the global automation pass on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"apptrackr/internal/automation"
	"apptrackr/internal/common/logger"
	"apptrackr/internal/models"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrLockHeld       = errors.New("pass lock held elsewhere")
)

type Runner interface {
	Run(ctx context.Context, scope automation.Scope, now time.Time) (*automation.Result, error)
	JobName() string
}

// Locker guards the global pass across replicas.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, notes []models.AppNotification) int
}

// Dependencies wires the scheduler. Locker and Dispatcher are optional.
type Dependencies struct {
	Runner     Runner
	Locker     Locker
	Dispatcher Dispatcher
	Logger     logger.Logger
}

// Scheduler owns the background timer and the notification fan-out started by
// its passes. It is created stopped; Start and Stop may each be called once.
// Stop also drains fan-out from on-demand passes, so call it even when the
// timer was never started.
type Scheduler struct {
	config     *Config
	runner     Runner
	locker     Locker
	dispatcher Dispatcher
	logger     logger.Logger
	now        func() time.Time

	mu       sync.Mutex
	cron     *cron.Cron
	started  bool
	stopped  bool
	draining bool

	dispatches sync.WaitGroup
}

func New(deps Dependencies, config *Config) (*Scheduler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	if deps.Runner == nil {
		return nil, fmt.Errorf("scheduler requires a runner")
	}

	log := deps.Logger.WithFields(map[string]interface{}{
		"component": "scheduler",
		"job":       deps.Runner.JobName(),
	})
	adapter := cronLogger{logger: log}

	return &Scheduler{
		config:     config,
		runner:     deps.Runner,
		locker:     deps.Locker,
		dispatcher: deps.Dispatcher,
		logger:     log,
		now:        time.Now,
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
	}, nil
}

// Start registers the pass on the configured schedule and starts the timer.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if _, err := s.cron.AddFunc(s.config.Schedule, s.tick); err != nil {
		return fmt.Errorf("schedule pass: %w", err)
	}
	s.cron.Start()
	s.started = true

	s.logger.Info("Scheduler started", map[string]interface{}{"schedule": s.config.Schedule})
	return nil
}

// Stop halts the timer, waits for an in-flight pass and then for pending
// notification fan-out, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	if started {
		select {
		case <-s.cron.Stop().Done():
		case <-ctx.Done():
			return fmt.Errorf("waiting for running pass: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.dispatches.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Info("Scheduler stopped", nil)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for notification fan-out: %w", ctx.Err())
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	if _, err := s.RunGlobal(ctx); err != nil && !errors.Is(err, ErrLockHeld) {
		s.logger.Error("Scheduled pass failed", map[string]interface{}{"error": err})
	}
}

func (s *Scheduler) lockKey() string {
	return "apptrackr:lock:" + s.runner.JobName()
}

// RunGlobal runs one all-users pass under the distributed lock.
func (s *Scheduler) RunGlobal(ctx context.Context) (*automation.Result, error) {
	if s.locker != nil {
		token := uuid.NewString()
		ok, err := s.locker.AcquireLock(ctx, s.lockKey(), token, s.config.LockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Debug("Skipping tick, pass lock held", nil)
			return nil, ErrLockHeld
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.Background(), s.lockKey(), token); err != nil {
				s.logger.Warn("Failed to release pass lock", map[string]interface{}{"error": err})
			}
		}()
	}
	return s.Trigger(ctx, automation.AllUsers())
}

// Trigger runs a pass for scope immediately and returns once it commits. The
// pass's notifications are fanned out in the background. Trigger does not take
// the distributed lock; row locks keep it consistent with concurrent passes.
func (s *Scheduler) Trigger(ctx context.Context, scope automation.Scope) (*automation.Result, error) {
	result, err := s.runner.Run(ctx, scope, s.now())
	if err != nil {
		return nil, err
	}
	if s.dispatcher != nil && len(result.Notifications) > 0 {
		s.dispatch(ctx, result.Notifications)
	}
	return result, nil
}

// dispatch delivers notes on a context detached from the caller, so a
// finished request or tick does not cancel delivery. Once Stop is draining,
// delivery runs inline instead.
func (s *Scheduler) dispatch(ctx context.Context, notes []models.AppNotification) {
	deliver := func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.DispatchTimeout)
		defer cancel()
		sent := s.dispatcher.Dispatch(dctx, notes)
		s.logger.Debug("Notification fan-out finished", map[string]interface{}{
			"notifications": len(notes),
			"delivered":     sent,
		})
	}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		deliver()
		return
	}
	s.dispatches.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.dispatches.Done()
		deliver()
	}()
}
