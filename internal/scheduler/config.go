package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config controls the timer, the global pass lock and notification fan-out.
// LockTTL must exceed RunTimeout so the lock cannot lapse mid-pass.
type Config struct {
	Schedule        string        `mapstructure:"schedule"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Schedule:        "@every 10s",
		LockTTL:         time.Minute,
		RunTimeout:      30 * time.Second,
		DispatchTimeout: 30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock_ttl must be positive")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive")
	}
	if c.LockTTL <= c.RunTimeout {
		return fmt.Errorf("lock_ttl (%s) must be longer than run_timeout (%s)", c.LockTTL, c.RunTimeout)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("dispatch_timeout must be positive")
	}
	return nil
}
