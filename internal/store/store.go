// Package store persists users, applications, notifications and cron logs in
// Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name TEXT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS applications (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	company_name TEXT NOT NULL,
	role_title TEXT NOT NULL,
	city TEXT NOT NULL,
	country TEXT NOT NULL,
	salary TEXT NULL,
	applied_date TIMESTAMPTZ NOT NULL,
	followup_date DATE NULL,
	followed_up_at TEXT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	followup_method TEXT NULL,
	notes TEXT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS app_notifications (
	id BIGSERIAL PRIMARY KEY,
	application_id BIGINT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	message TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	is_read BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS cron_logs (
	job_name TEXT PRIMARY KEY,
	last_run TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applications_status_user ON applications (status, user_id);
CREATE INDEX IF NOT EXISTS idx_app_notifications_user_read ON app_notifications (user_id, is_read);
`)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
