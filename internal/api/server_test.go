package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apptrackr/internal/automation"
	"apptrackr/internal/auth"
	"apptrackr/internal/common/errors"
	"apptrackr/internal/common/logger"
	"apptrackr/internal/models"
	"apptrackr/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateApplication(ctx context.Context, app *models.Application) error {
	args := m.Called(ctx, app)
	if args.Error(0) == nil {
		app.ID = 1
	}
	return args.Error(0)
}

func (m *MockStore) ListApplications(ctx context.Context, userID int64) ([]models.Application, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *MockStore) GetApplication(ctx context.Context, userID, id int64) (*models.Application, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockStore) UpdateApplication(ctx context.Context, userID, id int64, patch models.ApplicationPatch, now time.Time) (*models.Application, error) {
	args := m.Called(ctx, userID, id, patch, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockStore) DeleteApplication(ctx context.Context, userID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockStore) CountByStatus(ctx context.Context, userID int64) (map[models.Status]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Status]int), args.Error(1)
}

func (m *MockStore) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.AppNotification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AppNotification), args.Error(1)
}

func (m *MockStore) MarkNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) LastRun(ctx context.Context, jobName string) (time.Time, bool, error) {
	args := m.Called(ctx, jobName)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

type MockAuth struct {
	mock.Mock
}

func (m *MockAuth) Signup(ctx context.Context, email, password string, name *string) (*models.User, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuth) Login(ctx context.Context, email, password string) (*auth.LoginOutput, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginOutput), args.Error(1)
}

func (m *MockAuth) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockAuth) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type MockPasses struct {
	mock.Mock
}

func (m *MockPasses) Trigger(ctx context.Context, scope automation.Scope) (*automation.Result, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*automation.Result), args.Error(1)
}

type staticHealth struct {
	backends map[string]string
	ok       bool
}

func (h staticHealth) Check(ctx context.Context) (map[string]string, bool) {
	return h.backends, h.ok
}

// ==========================
// Test Helpers
// ==========================

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	server *Server
	store  *MockStore
	auth   *MockAuth
	passes *MockPasses
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: new(MockStore), auth: new(MockAuth), passes: new(MockPasses)}
	h.server = New(Dependencies{
		Store:   h.store,
		Auth:    h.auth,
		Passes:  h.passes,
		Health:  staticHealth{backends: map[string]string{"postgres": "ok"}, ok: true},
		Logger:  logger.NewTestLogger(t),
		JobName: "followup_check",
	})
	h.server.now = func() time.Time { return fixedNow }
	h.auth.On("Authenticate", mock.Anything, "good-token").
		Return(&models.Session{Token: "good-token", UserID: 7, Email: "demo@example.com"}, nil).Maybe()
	h.auth.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, errors.NewUnauthorizedError("invalid or expired session")).Maybe()
	return h
}

func (h *harness) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer good-token")
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// ==========================
// System endpoints
// ==========================

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/ready", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	h.server.health = staticHealth{backends: map[string]string{"redis": "dial tcp: refused"}, ok: false}
	rec = h.do(http.MethodGet, "/ready", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/apps"},
		{http.MethodPost, "/cron/run"},
		{http.MethodGet, "/notifications"},
		{http.MethodGet, "/stats"},
	} {
		rec := h.do(route.method, route.path, "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

// ==========================
// Auth endpoints
// ==========================

func TestSignup(t *testing.T) {
	h := newHarness(t)
	name := "Test User"
	h.auth.On("Signup", mock.Anything, "testuser@example.com", "password123", &name).
		Return(&models.User{ID: 3, Email: "testuser@example.com", Name: &name}, nil)

	rec := h.do(http.MethodPost, "/signup", `{"email":"testuser@example.com","password":"password123","name":"Test User"}`, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["id"])
	assert.Equal(t, "Test User", body["name"])
}

func TestSignup_Rejections(t *testing.T) {
	h := newHarness(t)
	h.auth.On("Signup", mock.Anything, "taken@example.com", mock.Anything, mock.Anything).
		Return(nil, errors.NewEmailAlreadyRegisteredError())

	rec := h.do(http.MethodPost, "/signup", `{"email":"a@b.co","password":"123"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/signup", `{"email":"taken@example.com","password":"password123"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered.", decode(t, rec)["detail"])
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.auth.On("Login", mock.Anything, "demo@example.com", "password123").
		Return(&auth.LoginOutput{Token: "tok", User: auth.SessionUser{ID: 7, Email: "demo@example.com"}}, nil)
	h.auth.On("Login", mock.Anything, "demo@example.com", "wrong").
		Return(nil, errors.NewInvalidCredentialsError())

	rec := h.do(http.MethodPost, "/login", `{"email":"demo@example.com","password":"password123"}`, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", decode(t, rec)["token"])

	rec = h.do(http.MethodPost, "/login", `{"email":"demo@example.com","password":"wrong"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode(t, rec)["detail"])
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.auth.On("Logout", mock.Anything, "good-token").Return(nil)

	rec := h.do(http.MethodPost, "/logout", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	h.auth.AssertExpectations(t)
}

// ==========================
// Application endpoints
// ==========================

func TestCreateApp(t *testing.T) {
	h := newHarness(t)
	h.store.On("CreateApplication", mock.Anything, mock.MatchedBy(func(app *models.Application) bool {
		return app.UserID == 7 &&
			app.CompanyName == "FakeCorp" &&
			app.Status == models.StatusPending &&
			app.AppliedDate.Equal(time.Date(2025, 10, 21, 12, 0, 0, 0, time.UTC)) &&
			app.FollowupDate != nil && app.FollowupDate.Equal(time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC))
	})).Return(nil)

	rec := h.do(http.MethodPost, "/apps", `{"company_name":"FakeCorp","role_title":"Engineer","city":"Paris",
		"country":"France","applied_date":"2025-10-21T12:00:00","followup_date":"2025-10-28"}`, true)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "pending", body["status"])
	h.store.AssertExpectations(t)
}

func TestCreateApp_FollowedUpStampsTimestamp(t *testing.T) {
	h := newHarness(t)
	h.store.On("CreateApplication", mock.Anything, mock.MatchedBy(func(app *models.Application) bool {
		return app.FollowedUpAt != nil && *app.FollowedUpAt == models.FormatTimestamp(fixedNow)
	})).Return(nil)

	rec := h.do(http.MethodPost, "/apps", `{"company_name":"Acme","role_title":"Engineer","city":"c",
		"country":"c","applied_date":"2025-01-01","status":"followed-up"}`, true)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	h.store.AssertExpectations(t)
}

func TestCreateApp_ValidationFailure(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/apps", `{"company_name":"Acme","status":"ghosted"}`, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	assert.Contains(t, errBody["details"], "status")
	h.store.AssertNotCalled(t, "CreateApplication", mock.Anything, mock.Anything)
}

func TestGetApp_ForeignOwnerIs404(t *testing.T) {
	h := newHarness(t)
	h.store.On("GetApplication", mock.Anything, int64(7), int64(99)).
		Return(nil, fmt.Errorf("%w: application 99", store.ErrNotFound))

	rec := h.do(http.MethodGet, "/apps/99", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Application not found", decode(t, rec)["detail"])

	rec = h.do(http.MethodGet, "/apps/abc", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListApps(t *testing.T) {
	h := newHarness(t)
	h.store.On("ListApplications", mock.Anything, int64(7)).Return([]models.Application{
		{ID: 1, UserID: 7, CompanyName: "Acme", Status: models.StatusActive},
		{ID: 2, UserID: 7, CompanyName: "Globex", Status: models.StatusRejected},
	}, nil)

	rec := h.do(http.MethodGet, "/apps", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var apps []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	assert.Len(t, apps, 2)
	assert.Contains(t, apps[0], "company_name")
	assert.Contains(t, apps[0], "role_title")
}

func TestUpdateApp(t *testing.T) {
	h := newHarness(t)
	rejected := models.StatusRejected
	want := models.ApplicationPatch{
		Status: &rejected,
		Notes:  models.Nullable[string]{Set: true},
	}
	h.store.On("UpdateApplication", mock.Anything, int64(7), int64(3), want, fixedNow).
		Return(&models.Application{ID: 3, UserID: 7, Status: models.StatusRejected}, nil)

	rec := h.do(http.MethodPut, "/apps/3", `{"status":"rejected","notes":null}`, true)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rejected", decode(t, rec)["status"])
	h.store.AssertExpectations(t)
}

func TestUpdateApp_UnknownFieldRejected(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPut, "/apps/3", `{"user_id":99}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodePatch_Dates(t *testing.T) {
	patch, err := decodePatch(map[string]json.RawMessage{
		"followup_date": json.RawMessage(`"2025-04-02T15:00:00Z"`),
		"applied_date":  json.RawMessage(`"2025-03-01"`),
		"company_name":  json.RawMessage(`"Initech"`),
	})
	require.NoError(t, err)
	require.True(t, patch.FollowupDate.Set)
	assert.Equal(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), *patch.FollowupDate.Value)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *patch.AppliedDate)
	assert.Equal(t, "Initech", *patch.CompanyName)
	assert.False(t, patch.Salary.Set)

	patch, err = decodePatch(map[string]json.RawMessage{"followup_date": json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.True(t, patch.FollowupDate.Set)
	assert.Nil(t, patch.FollowupDate.Value)
}

func TestDeleteApp(t *testing.T) {
	h := newHarness(t)
	h.store.On("DeleteApplication", mock.Anything, int64(7), int64(3)).Return(nil)
	h.store.On("DeleteApplication", mock.Anything, int64(7), int64(4)).Return(store.ErrNotFound)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/apps/3", "", true).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/apps/4", "", true).Code)
}

// ==========================
// Notifications, passes, stats
// ==========================

func TestNotifications(t *testing.T) {
	h := newHarness(t)
	h.store.On("ListNotifications", mock.Anything, int64(7), true).Return([]models.AppNotification{
		{ID: 1, ApplicationID: 2, UserID: 7, Message: "No response from Acme - Engineer"},
	}, nil)
	h.store.On("MarkNotificationsRead", mock.Anything, int64(7)).Return(int64(1), nil)

	rec := h.do(http.MethodGet, "/notifications?unread=true", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No response from Acme - Engineer")

	rec = h.do(http.MethodPost, "/notifications/read", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["updated"])
}

func TestRunPass_ScopedToCaller(t *testing.T) {
	h := newHarness(t)
	h.passes.On("Trigger", mock.Anything, automation.SingleUser(7)).
		Return(&automation.Result{Processed: 2}, nil).Once()

	rec := h.do(http.MethodPost, "/cron/run", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["processed"])
	h.passes.AssertExpectations(t)
}

func TestRunPass_Failure(t *testing.T) {
	h := newHarness(t)
	h.passes.On("Trigger", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: commit: serialization failure", automation.ErrPassFailed))

	rec := h.do(http.MethodPost, "/cron/run", "", true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "AUTOMATION_FAILED", errBody["code"])
	assert.NotContains(t, errBody, "details")
}

func TestCronStatus(t *testing.T) {
	h := newHarness(t)
	h.store.On("LastRun", mock.Anything, "followup_check").Return(time.Time{}, false, nil).Once()

	rec := h.do(http.MethodGet, "/cron/status", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["last_run"])

	h.store.On("LastRun", mock.Anything, "followup_check").Return(fixedNow, true, nil).Once()
	rec = h.do(http.MethodGet, "/cron/status", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03-01T12:00:00Z", decode(t, rec)["last_run"])
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.store.On("CountByStatus", mock.Anything, int64(7)).Return(map[models.Status]int{
		models.StatusPending:  1,
		models.StatusActive:   1,
		models.StatusRejected: 1,
	}, nil)

	rec := h.do(http.MethodGet, "/stats", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["applications_total"])
	byStatus := body["applications_by_status"].(map[string]interface{})
	for _, status := range []string{"pending", "active", "rejected"} {
		assert.Equal(t, float64(1), byStatus[status])
	}
}

func TestStoreErrorsAreServerErrors(t *testing.T) {
	h := newHarness(t)
	h.store.On("ListApplications", mock.Anything, int64(7)).Return(nil, stderrors.New("connection refused"))

	rec := h.do(http.MethodGet, "/apps", "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))
	req.Header.Set("Authorization", "bearer abc ")
	assert.Equal(t, "abc", bearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(req))
}
