package automation

import (
	"context"
	"sort"
	"sync"
	"time"

	"apptrackr/internal/models"
)

// memStore is a serializable in-memory Store: a transaction holds the store
// lock from Begin until Commit or Rollback and works on a private copy.
type memStore struct {
	mu sync.Mutex

	apps          map[int64]models.Application
	notifications []models.AppNotification
	cronLogs      map[string]time.Time
	nextNoteID    int64

	// observed per committed or rolled back transaction
	queriedStatuses []models.Status

	commitErr error
	applyHook func(applicationID int64) (bool, bool) // (override, applied)
}

func newMemStore(apps ...models.Application) *memStore {
	s := &memStore{
		apps:     make(map[int64]models.Application),
		cronLogs: make(map[string]time.Time),
	}
	for _, app := range apps {
		s.apps[app.ID] = app
	}
	return s
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	tx := &memTx{
		store:    s,
		apps:     make(map[int64]models.Application, len(s.apps)),
		cronLogs: make(map[string]time.Time, len(s.cronLogs)),
		nextID:   s.nextNoteID,
	}
	for id, app := range s.apps {
		tx.apps[id] = app
	}
	for k, v := range s.cronLogs {
		tx.cronLogs[k] = v
	}
	return tx, nil
}

func (s *memStore) app(id int64) models.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps[id]
}

func (s *memStore) notificationsFor(userID int64) []models.AppNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AppNotification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *memStore) allNotifications() []models.AppNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AppNotification(nil), s.notifications...)
}

func (s *memStore) cronLogCount() (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cronLogs), s.cronLogs["followup_check"]
}

type memTx struct {
	store    *memStore
	apps     map[int64]models.Application
	notes    []models.AppNotification
	cronLogs map[string]time.Time
	queried  []models.Status
	nextID   int64
	done     bool
}

func (t *memTx) LockCandidates(ctx context.Context, status models.Status, scope Scope) ([]models.Application, error) {
	t.queried = append(t.queried, status)
	userID, scoped := scope.UserID()

	var out []models.Application
	for _, app := range t.apps {
		if app.Status != status {
			continue
		}
		if scoped && app.UserID != userID {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) Apply(ctx context.Context, tr Transition, applicationID int64, at time.Time) (bool, error) {
	if hook := t.store.applyHook; hook != nil {
		if override, applied := hook(applicationID); override {
			return applied, nil
		}
	}
	app, ok := t.apps[applicationID]
	if !ok || app.Status != tr.From() {
		return false, nil
	}
	app.Status = tr.To()
	app.UpdatedAt = at
	t.apps[applicationID] = app
	return true, nil
}

func (t *memTx) InsertNotification(ctx context.Context, n *models.AppNotification) error {
	t.nextID++
	n.ID = t.nextID
	t.notes = append(t.notes, *n)
	return nil
}

func (t *memTx) TouchCronLog(ctx context.Context, jobName string, at time.Time) error {
	t.cronLogs[jobName] = at
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.store.mu.Unlock()

	t.store.queriedStatuses = append(t.store.queriedStatuses, t.queried...)
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.apps = t.apps
	t.store.notifications = append(t.store.notifications, t.notes...)
	t.store.cronLogs = t.cronLogs
	t.store.nextNoteID = t.nextID
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.queriedStatuses = append(t.store.queriedStatuses, t.queried...)
	t.store.mu.Unlock()
	return nil
}
