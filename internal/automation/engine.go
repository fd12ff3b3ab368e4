// Package automation applies the time-driven status transitions to tracked
// applications and records each pass.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apptrackr/internal/common/logger"
	"apptrackr/internal/common/metrics"
	"apptrackr/internal/models"
)

var (
	// ErrPassFailed wraps every error that aborts a pass.
	ErrPassFailed = errors.New("AUTOMATION_PASS_FAILED")
)

// Config holds the grace period for NoResponse and the CronLog job name.
type Config struct {
	GracePeriod time.Duration
	JobName     string
}

// DefaultConfig uses a seven day grace period and the followup_check job.
func DefaultConfig() Config {
	return Config{
		GracePeriod: 7 * 24 * time.Hour,
		JobName:     "followup_check",
	}
}

// Validate rejects a negative grace period or an empty job name.
func (c Config) Validate() error {
	if c.GracePeriod < 0 {
		return fmt.Errorf("grace period must not be negative")
	}
	if c.JobName == "" {
		return fmt.Errorf("job name is required")
	}
	return nil
}

// Result describes a committed pass.
type Result struct {
	Processed     int
	Skipped       int
	ByTransition  map[Transition]int
	Notifications []models.AppNotification
	RanAt         time.Time
}

// Engine runs automation passes. It keeps no state between passes; every
// decision is a function of the stored rows, the scope and now.
type Engine struct {
	store  Store
	config Config
	rules  []rule
	logger logger.Logger
}

// NewEngine validates config and builds an engine over store.
func NewEngine(store Store, config Config, log logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("automation config: %w", err)
	}
	return &Engine{
		store:  store,
		config: config,
		rules:  []rule{followUpDueRule(), noResponseRule(config.GracePeriod)},
		logger: log.WithFields(map[string]interface{}{"component": "automation", "job": config.JobName}),
	}, nil
}

// JobName is the CronLog key this engine maintains.
func (e *Engine) JobName() string {
	return e.config.JobName
}

// RunPass runs one pass and returns the number of applications transitioned.
func (e *Engine) RunPass(ctx context.Context, scope Scope, now time.Time) (int, error) {
	result, err := e.Run(ctx, scope, now)
	if err != nil {
		return 0, err
	}
	return result.Processed, nil
}

// Run evaluates every rule in order inside one transaction and commits the
// transitions, their notifications and the CronLog marker together.
func (e *Engine) Run(ctx context.Context, scope Scope, now time.Time) (*Result, error) {
	start := time.Now()
	log := e.logger.WithFields(map[string]interface{}{"scope": scope.String()})

	result, err := e.run(ctx, log, scope, now)

	metrics.AutomationPassDuration.WithLabelValues(scope.Kind()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AutomationPasses.WithLabelValues(scope.Kind(), "failure").Inc()
		log.Error("automation pass failed", map[string]interface{}{"error": err})
		return nil, err
	}

	metrics.AutomationPasses.WithLabelValues(scope.Kind(), "success").Inc()
	metrics.AutomationLastSuccess.WithLabelValues(e.config.JobName).Set(float64(now.Unix()))
	for t, n := range result.ByTransition {
		metrics.AutomationTransitions.WithLabelValues(t.Name()).Add(float64(n))
	}

	log.Info("automation pass committed", map[string]interface{}{
		"processed":  result.Processed,
		"skipped":    result.Skipped,
		"now":        now.UTC().Format(time.RFC3339),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (e *Engine) run(ctx context.Context, log logger.Logger, scope Scope, now time.Time) (*Result, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrPassFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result := &Result{
		ByTransition: make(map[Transition]int, len(e.rules)),
		RanAt:        now,
	}

	for _, r := range e.rules {
		if err := e.applyRule(ctx, log, tx, r, scope, now, result); err != nil {
			return nil, err
		}
	}

	if err := tx.TouchCronLog(ctx, e.config.JobName, now); err != nil {
		return nil, fmt.Errorf("%w: cron log: %v", ErrPassFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrPassFailed, err)
	}
	committed = true

	return result, nil
}

func (e *Engine) applyRule(ctx context.Context, log logger.Logger, tx Tx, r rule, scope Scope, now time.Time, result *Result) error {
	candidates, err := tx.LockCandidates(ctx, r.transition.From(), scope)
	if err != nil {
		return fmt.Errorf("%w: load %s candidates: %v", ErrPassFailed, r.transition.From(), err)
	}

	for i := range candidates {
		app := &candidates[i]

		due, err := r.due(app, now)
		if err != nil {
			result.Skipped++
			metrics.AutomationRowsSkipped.WithLabelValues(r.transition.Name()).Inc()
			log.Warn("skipping application", map[string]interface{}{
				"rule":          r.transition.Name(),
				"applicationId": app.ID,
				"error":         err,
			})
			continue
		}
		if !due {
			continue
		}

		applied, err := tx.Apply(ctx, r.transition, app.ID, now)
		if err != nil {
			return fmt.Errorf("%w: apply %s to %d: %v", ErrPassFailed, r.transition, app.ID, err)
		}
		if !applied {
			log.Debug("application changed before transition", map[string]interface{}{
				"rule":          r.transition.Name(),
				"applicationId": app.ID,
			})
			continue
		}

		n := models.AppNotification{
			ApplicationID: app.ID,
			UserID:        app.UserID,
			Message:       r.transition.Message(app),
			CreatedAt:     now,
		}
		if err := tx.InsertNotification(ctx, &n); err != nil {
			return fmt.Errorf("%w: notify %d: %v", ErrPassFailed, app.ID, err)
		}

		result.Notifications = append(result.Notifications, n)
		result.ByTransition[r.transition]++
		result.Processed++
	}

	return nil
}
