package automation

import (
	"context"
	"time"

	"apptrackr/internal/models"
)

// Store opens the single transaction a pass runs in.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the working set of one pass. Nothing written through it is visible
// to other passes or API requests until Commit succeeds.
type Tx interface {
	// LockCandidates returns the rows in status, restricted by scope, and
	// holds them against concurrent writers until the transaction ends.
	LockCandidates(ctx context.Context, status models.Status, scope Scope) ([]models.Application, error)
	// Apply performs t on the application if it is still in t.From(). It
	// reports false when the row has moved on.
	Apply(ctx context.Context, t Transition, applicationID int64, at time.Time) (bool, error)
	InsertNotification(ctx context.Context, n *models.AppNotification) error
	// TouchCronLog upserts the run marker for jobName.
	TouchCronLog(ctx context.Context, jobName string, at time.Time) error
	Commit() error
	Rollback() error
}
