package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"apptrackr/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// CreateUser inserts user and fills in ID and CreatedAt. A duplicate email
// returns ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		user.Email, user.PasswordHash, nullString(user.Name), user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var (
		user models.User
		name sql.NullString
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, created_at, is_active FROM users `+where, arg,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &name, &user.CreatedAt, &user.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.Name = stringPtr(name)
	return &user, nil
}
