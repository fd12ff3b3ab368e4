// Package auth registers users and manages their bearer sessions.
package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"apptrackr/internal/common/errors"
	"apptrackr/internal/common/logger"
	"apptrackr/internal/common/validation"
	"apptrackr/internal/models"
	"apptrackr/internal/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt only looks at the first 72 bytes of a password.
const maxPasswordBytes = 72

// UserStore is the slice of the store the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type ServiceDependencies struct {
	Users  UserStore
	Redis  *redis.Client
	Logger logger.Logger
}

type Service struct {
	config *Config
	users  UserStore
	redis  *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if deps.Users == nil || deps.Redis == nil {
		return nil, fmt.Errorf("auth service requires a user store and a redis client")
	}
	return &Service{
		config: config,
		users:  deps.Users,
		redis:  deps.Redis,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "auth"}),
		now:    time.Now,
	}, nil
}

// LoginOutput is returned to the client after a successful login.
type LoginOutput struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

type SessionUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func sessionKey(token string) string {
	return "session:" + token
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// Signup creates an active user with a hashed password.
func (s *Service) Signup(ctx context.Context, email, password string, name *string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if !validation.ValidateEmail(email) {
		return nil, errors.NewValidationError("email is not a valid address")
	}
	if len(password) < 6 {
		return nil, errors.NewValidationError("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), s.config.BcryptCost)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if stderrors.Is(err, store.ErrEmailTaken) {
			return nil, errors.NewEmailAlreadyRegisteredError()
		}
		return nil, errors.NewDatabaseQueryFailedError("create user", err)
	}

	s.logger.Info("User registered", map[string]interface{}{"userId": user.ID})
	return user, nil
}

// Login verifies the credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewInvalidCredentialsError()
		}
		return nil, errors.NewDatabaseQueryFailedError("get user", err)
	}
	if !user.IsActive {
		s.logger.Warn("Login attempt for inactive user", map[string]interface{}{"userId": user.ID})
		return nil, errors.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), truncatePassword(password)); err != nil {
		return nil, errors.NewInvalidCredentialsError()
	}

	now := s.now().UTC()
	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.Token), payload, s.config.SessionTTL).Err(); err != nil {
		return nil, errors.NewSessionStoreFailedError(err)
	}

	s.logger.Info("Session created", map[string]interface{}{"userId": user.ID})
	return &LoginOutput{
		Token: session.Token,
		User:  SessionUser{ID: user.ID, Email: user.Email},
	}, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, errors.NewUnauthorizedError("missing bearer token")
	}

	raw, err := s.redis.Get(ctx, sessionKey(token)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NewUnauthorizedError("invalid or expired session")
	}
	if err != nil {
		return nil, errors.NewSessionStoreFailedError(err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.NewUnauthorizedError("invalid or expired session")
	}
	if session.IsExpired(s.now()) {
		return nil, errors.NewUnauthorizedError("invalid or expired session")
	}
	return &session, nil
}

// Logout drops the session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKey(token)).Err(); err != nil {
		return errors.NewSessionStoreFailedError(err)
	}
	return nil
}
