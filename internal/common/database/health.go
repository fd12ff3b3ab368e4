package database

import (
	"context"
	"time"
)

// Pinger is satisfied by PostgresClient and RedisClient.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker pings every named backend for the readiness probe.
type HealthChecker struct {
	backends map[string]Pinger
	timeout  time.Duration
}

func NewHealthChecker(timeout time.Duration, backends map[string]Pinger) *HealthChecker {
	return &HealthChecker{backends: backends, timeout: timeout}
}

// Check returns "ok" or the ping error text per backend, and whether all
// backends answered.
func (h *HealthChecker) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.backends))
	healthy := true
	for name, backend := range h.backends {
		if err := backend.Ping(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	return status, healthy
}
