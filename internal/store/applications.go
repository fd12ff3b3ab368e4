package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"apptrackr/internal/models"
)

const applicationColumns = `id, user_id, company_name, role_title, city, country, salary,
	applied_date, followup_date, followed_up_at, status, followup_method, notes, updated_at`

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app            models.Application
		salary         sql.NullString
		followupDate   sql.NullTime
		followedUpAt   sql.NullString
		status         string
		followupMethod sql.NullString
		notes          sql.NullString
	)
	err := row.Scan(&app.ID, &app.UserID, &app.CompanyName, &app.RoleTitle, &app.City, &app.Country,
		&salary, &app.AppliedDate, &followupDate, &followedUpAt, &status, &followupMethod, &notes, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.Salary = stringPtr(salary)
	if followupDate.Valid {
		d := models.DateOf(followupDate.Time)
		app.FollowupDate = &d
	}
	app.FollowedUpAt = stringPtr(followedUpAt)
	app.Status = models.Status(status)
	app.FollowupMethod = stringPtr(followupMethod)
	app.Notes = stringPtr(notes)
	return &app, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: models.DateOf(*t), Valid: true}
}

// CreateApplication inserts app for its owner and fills in ID and UpdatedAt.
func (s *Store) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO applications (user_id, company_name, role_title, city, country, salary,
			applied_date, followup_date, followed_up_at, status, followup_method, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		app.UserID, app.CompanyName, app.RoleTitle, app.City, app.Country, nullString(app.Salary),
		app.AppliedDate.UTC(), nullDate(app.FollowupDate), nullString(app.FollowedUpAt), string(app.Status),
		nullString(app.FollowupMethod), nullString(app.Notes), app.UpdatedAt.UTC(),
	).Scan(&app.ID)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// ListApplications returns the owner's applications ordered by id.
func (s *Store) ListApplications(ctx context.Context, userID int64) ([]models.Application, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// GetApplication returns ErrNotFound when the row is missing or owned by
// someone else.
func (s *Store) GetApplication(ctx context.Context, userID, id int64) (*models.Application, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 AND user_id = $2`, id, userID)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: application %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

// UpdateApplication locks the row, applies patch and writes it back in one
// transaction so it serializes with automation passes.
func (s *Store) UpdateApplication(ctx context.Context, userID, id int64, patch models.ApplicationPatch, now time.Time) (*models.Application, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: application %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock application: %w", err)
	}

	patch.ApplyTo(app, now)

	_, err = tx.ExecContext(ctx, `
		UPDATE applications
		SET company_name = $1, role_title = $2, city = $3, country = $4, salary = $5,
			applied_date = $6, followup_date = $7, followed_up_at = $8, status = $9,
			followup_method = $10, notes = $11, updated_at = $12
		WHERE id = $13`,
		app.CompanyName, app.RoleTitle, app.City, app.Country, nullString(app.Salary),
		app.AppliedDate.UTC(), nullDate(app.FollowupDate), nullString(app.FollowedUpAt), string(app.Status),
		nullString(app.FollowupMethod), nullString(app.Notes), app.UpdatedAt.UTC(), app.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return app, nil
}

// DeleteApplication removes the owner's application and its notifications.
func (s *Store) DeleteApplication(ctx context.Context, userID, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM applications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: application %d", ErrNotFound, id)
	}
	return nil
}

// CountByStatus returns the owner's application counts keyed by status.
// Statuses with no applications are omitted.
func (s *Store) CountByStatus(ctx context.Context, userID int64) (map[models.Status]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM applications WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}
