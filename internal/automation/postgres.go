package automation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"apptrackr/internal/models"
)

// PostgresStore runs passes against the applications schema created by
// store.Migrate.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx *sql.Tx
}

// LockCandidates loads only the columns the rules read. Rows are locked in id
// order so overlapping passes acquire them in the same sequence.
func (t *postgresTx) LockCandidates(ctx context.Context, status models.Status, scope Scope) ([]models.Application, error) {
	query := `
		SELECT id, user_id, company_name, role_title, followup_date, followed_up_at, status
		FROM applications
		WHERE status = $1`
	args := []interface{}{string(status)}
	if userID, ok := scope.UserID(); ok {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += `
		ORDER BY id
		FOR UPDATE`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		var (
			app          models.Application
			followupDate sql.NullTime
			followedUpAt sql.NullString
			rawStatus    string
		)
		if err := rows.Scan(&app.ID, &app.UserID, &app.CompanyName, &app.RoleTitle,
			&followupDate, &followedUpAt, &rawStatus); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if followupDate.Valid {
			d := followupDate.Time
			app.FollowupDate = &d
		}
		if followedUpAt.Valid {
			v := followedUpAt.String
			app.FollowedUpAt = &v
		}
		app.Status = models.Status(rawStatus)
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (t *postgresTx) Apply(ctx context.Context, tr Transition, applicationID int64, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(tr.To()), at.UTC(), applicationID, string(tr.From()),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *postgresTx) InsertNotification(ctx context.Context, n *models.AppNotification) error {
	return t.tx.QueryRowContext(ctx, `
		INSERT INTO app_notifications (application_id, user_id, message, created_at, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id`,
		n.ApplicationID, n.UserID, n.Message, n.CreatedAt.UTC(),
	).Scan(&n.ID)
}

func (t *postgresTx) TouchCronLog(ctx context.Context, jobName string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cron_logs (job_name, last_run)
		VALUES ($1, $2)
		ON CONFLICT (job_name) DO UPDATE SET last_run = EXCLUDED.last_run`,
		jobName, at.UTC(),
	)
	return err
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTx) Rollback() error {
	return t.tx.Rollback()
}
