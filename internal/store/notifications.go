package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"apptrackr/internal/models"
)

// ListNotifications returns the owner's notifications newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.AppNotification, error) {
	query := `SELECT id, application_id, user_id, message, created_at, is_read
		FROM app_notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notes := []models.AppNotification{}
	for rows.Next() {
		var n models.AppNotification
		if err := rows.Scan(&n.ID, &n.ApplicationID, &n.UserID, &n.Message, &n.CreatedAt, &n.IsRead); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MarkNotificationsRead flags all of the owner's unread notifications and
// returns how many changed.
func (s *Store) MarkNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE app_notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

// LastRun reports when jobName last committed. ok is false if it never ran.
func (s *Store) LastRun(ctx context.Context, jobName string) (time.Time, bool, error) {
	var last time.Time
	err := s.DB.QueryRowContext(ctx, `SELECT last_run FROM cron_logs WHERE job_name = $1`, jobName).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cron log: %w", err)
	}
	return last.UTC(), true, nil
}
