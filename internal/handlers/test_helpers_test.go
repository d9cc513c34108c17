package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/chatgate/internal/auth"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/BradenHooton/chatgate/internal/services"
	"github.com/BradenHooton/chatgate/internal/session"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAccountContext adds account claims to the request context
func WithAccountContext(req *http.Request, accountID, email string) *http.Request {
	claims := &models.TokenClaims{AccountID: accountID, Email: email, Type: "access"}
	return req.WithContext(auth.WithAccount(req.Context(), claims))
}

// NewTestSession starts a fresh gate session
func NewTestSession(t *testing.T) *session.Session {
	t.Helper()

	m := session.NewManager(session.Config{}, NewTestLogger())
	return m.Start(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

// WithSessionContext attaches s to the request context as the session middleware would
func WithSessionContext(req *http.Request, s *session.Session) *http.Request {
	return req.WithContext(session.WithSession(req.Context(), s))
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()

	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()

	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockLockoutGate implements LockoutGate for testing
type MockLockoutGate struct {
	IsIdentityBlockedFunc func(ctx context.Context, axes models.IdentityAxes) (bool, error)
	CheckAttemptFunc      func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error)
}

func (m *MockLockoutGate) IsIdentityBlocked(ctx context.Context, axes models.IdentityAxes) (bool, error) {
	if m.IsIdentityBlockedFunc == nil {
		return false, nil
	}
	return m.IsIdentityBlockedFunc(ctx, axes)
}

func (m *MockLockoutGate) CheckAttempt(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
	if m.CheckAttemptFunc == nil {
		return models.LockoutDecision{Attempts: 1}, nil
	}
	return m.CheckAttemptFunc(ctx, candidate, axes, counter)
}

// MockIdentityProvider implements IdentityProvider for testing
type MockIdentityProvider struct {
	SignupFunc     func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	LoginFunc      func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	GetAccountFunc func(ctx context.Context, accountID string) (*models.Account, error)
}

func (m *MockIdentityProvider) Signup(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.SignupFunc == nil {
		return nil, models.ErrDuplicateAccount
	}
	return m.SignupFunc(ctx, email, password)
}

func (m *MockIdentityProvider) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockIdentityProvider) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if m.GetAccountFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.GetAccountFunc(ctx, accountID)
}

// MockMessageReader implements MessageReader for testing
type MockMessageReader struct {
	ListAllFunc func(ctx context.Context) ([]*models.ChatMessage, error)
	GetByIDFunc func(ctx context.Context, id string) (*models.ChatMessage, error)
}

func (m *MockMessageReader) ListAll(ctx context.Context) ([]*models.ChatMessage, error) {
	if m.ListAllFunc == nil {
		return nil, nil
	}
	return m.ListAllFunc(ctx)
}

func (m *MockMessageReader) GetByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	if m.GetByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByIDFunc(ctx, id)
}

// MockSessionEnder records Destroy calls
type MockSessionEnder struct {
	Destroyed int
}

func (m *MockSessionEnder) Destroy(w http.ResponseWriter, r *http.Request) {
	m.Destroyed++
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
