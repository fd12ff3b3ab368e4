// Package api exposes the tracker over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"apptrackr/internal/automation"
	"apptrackr/internal/auth"
	"apptrackr/internal/common/errors"
	"apptrackr/internal/common/logger"
	"apptrackr/internal/common/observability"
	"apptrackr/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AppStore is the persistence the handlers use.
type AppStore interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	ListApplications(ctx context.Context, userID int64) ([]models.Application, error)
	GetApplication(ctx context.Context, userID, id int64) (*models.Application, error)
	UpdateApplication(ctx context.Context, userID, id int64, patch models.ApplicationPatch, now time.Time) (*models.Application, error)
	DeleteApplication(ctx context.Context, userID, id int64) error
	CountByStatus(ctx context.Context, userID int64) (map[models.Status]int, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.AppNotification, error)
	MarkNotificationsRead(ctx context.Context, userID int64) (int64, error)
	LastRun(ctx context.Context, jobName string) (time.Time, bool, error)
}

type Authenticator interface {
	Signup(ctx context.Context, email, password string, name *string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginOutput, error)
	Authenticate(ctx context.Context, token string) (*models.Session, error)
	Logout(ctx context.Context, token string) error
}

// PassTrigger runs an on-demand automation pass.
type PassTrigger interface {
	Trigger(ctx context.Context, scope automation.Scope) (*automation.Result, error)
}

type HealthChecker interface {
	Check(ctx context.Context) (map[string]string, bool)
}

type Dependencies struct {
	Store         AppStore
	Auth          Authenticator
	Passes        PassTrigger
	Health        HealthChecker
	Observability *observability.Observability
	Logger        logger.Logger
	JobName       string
}

type Server struct {
	store   AppStore
	auth    Authenticator
	passes  PassTrigger
	health  HealthChecker
	obs     *observability.Observability
	errors  *errors.ErrorHandler
	logger  logger.Logger
	jobName string
	now     func() time.Time
	mux     *http.ServeMux
}

func New(deps Dependencies) *Server {
	log := deps.Logger.WithFields(map[string]interface{}{"component": "api"})
	s := &Server{
		store:   deps.Store,
		auth:    deps.Auth,
		passes:  deps.Passes,
		health:  deps.Health,
		obs:     deps.Observability,
		errors:  errors.NewErrorHandler(log),
		logger:  log,
		jobName: deps.JobName,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.handle("POST /signup", s.handleSignup)
	s.handle("POST /login", s.handleLogin)
	s.handle("POST /logout", s.requireAuth(s.handleLogout))

	s.handle("GET /apps", s.requireAuth(s.handleListApps))
	s.handle("POST /apps", s.requireAuth(s.handleCreateApp))
	s.handle("GET /apps/{id}", s.requireAuth(s.handleGetApp))
	s.handle("PUT /apps/{id}", s.requireAuth(s.handleUpdateApp))
	s.handle("DELETE /apps/{id}", s.requireAuth(s.handleDeleteApp))

	s.handle("GET /notifications", s.requireAuth(s.handleListNotifications))
	s.handle("POST /notifications/read", s.requireAuth(s.handleMarkRead))

	s.handle("POST /cron/run", s.requireAuth(s.handleRunPass))
	s.handle("GET /cron/status", s.requireAuth(s.handleCronStatus))
	s.handle("GET /stats", s.requireAuth(s.handleStats))
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.obs.Middleware(pattern, h))
}
