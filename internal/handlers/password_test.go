package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/chatgate/internal/handlers"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/BradenHooton/chatgate/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Allowed_AdmitsSession(t *testing.T) {
	var gotAxes models.IdentityAxes
	var gotCandidate string
	gate := &handlers.MockLockoutGate{
		CheckAttemptFunc: func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
			gotCandidate, gotAxes = candidate, axes
			assert.NotNil(t, counter)
			return models.LockoutDecision{Allowed: true}, nil
		},
	}
	sess := handlers.NewTestSession(t)

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/password/check", handlers.CheckPasswordRequest{
		Password: "open sesame",
		Email:    "A@X.com",
	})
	req.Header.Set("X-Device-Fingerprint", " fp-1 ")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req = handlers.WithSessionContext(req, sess)
	w := httptest.NewRecorder()

	handlers.NewPasswordHandler(gate).Check(w, req)

	var resp handlers.CheckPasswordResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Success)
	assert.True(t, sess.Admitted())
	assert.Equal(t, "open sesame", gotCandidate)
	assert.Equal(t, models.IdentityAxes{Email: "a@x.com", DeviceFingerprint: "fp-1", AgentString: "Mozilla/5.0"}, gotAxes)
}

func TestCheck_Denied(t *testing.T) {
	gate := &handlers.MockLockoutGate{
		CheckAttemptFunc: func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
			return models.LockoutDecision{Attempts: 2}, nil
		},
	}

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/password/check", handlers.CheckPasswordRequest{Password: "nope"})
	w := httptest.NewRecorder()
	handlers.NewPasswordHandler(gate).Check(w, req)

	var resp handlers.CheckPasswordResponse
	handlers.AssertJSONResponse(t, w, http.StatusUnauthorized, &resp)
	assert.False(t, resp.Success)
	assert.False(t, resp.Blocked)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, "Incorrect password", resp.Message)
}

func TestCheck_Blocked_RevokesSession(t *testing.T) {
	gate := &handlers.MockLockoutGate{
		CheckAttemptFunc: func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
			return models.LockoutDecision{Blocked: true}, nil
		},
	}
	sess := handlers.NewTestSession(t)
	sess.Admit()

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/password/check", handlers.CheckPasswordRequest{Password: "nope"})
	req = handlers.WithSessionContext(req, sess)
	w := httptest.NewRecorder()
	handlers.NewPasswordHandler(gate).Check(w, req)

	var resp handlers.CheckPasswordResponse
	handlers.AssertJSONResponse(t, w, http.StatusForbidden, &resp)
	assert.True(t, resp.Blocked)
	assert.Equal(t, "NO ATTEMPTS LEFT", resp.Message)
	assert.False(t, sess.Admitted())
}

func TestCheck_NoSessionPassesNilCounter(t *testing.T) {
	called := false
	gate := &handlers.MockLockoutGate{
		CheckAttemptFunc: func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
			called = true
			assert.Nil(t, counter)
			return models.LockoutDecision{Attempts: 1}, nil
		},
	}

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/password/check", handlers.CheckPasswordRequest{Password: "nope"})
	w := httptest.NewRecorder()
	handlers.NewPasswordHandler(gate).Check(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheck_FallsBackToAccountEmail(t *testing.T) {
	var gotEmail string
	gate := &handlers.MockLockoutGate{
		CheckAttemptFunc: func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
			gotEmail = axes.Email
			return models.LockoutDecision{Attempts: 1}, nil
		},
	}

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/password/check", handlers.CheckPasswordRequest{Password: "nope"})
	req = handlers.WithAccountContext(req, "acc-1", "me@x.com")
	w := httptest.NewRecorder()
	handlers.NewPasswordHandler(gate).Check(w, req)

	assert.Equal(t, "me@x.com", gotEmail)
}

func TestCheck_StorageFailureIsNotADecision(t *testing.T) {
	gate := &handlers.MockLockoutGate{
		CheckAttemptFunc: func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
			return models.LockoutDecision{}, errors.Join(models.ErrStorage, errors.New("connection refused"))
		},
	}

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/password/check", handlers.CheckPasswordRequest{Password: "x"})
	w := httptest.NewRecorder()
	handlers.NewPasswordHandler(gate).Check(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

func TestCheck_InvalidBody(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantError string
	}{
		{name: "missing password", body: map[string]string{"email": "a@x.com"}, wantError: "validation_error"},
		{name: "bad email", body: map[string]string{"password": "x", "email": "not-an-email"}, wantError: "validation_error"},
		{name: "not json", body: "plain text", wantError: "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := &handlers.MockLockoutGate{
				CheckAttemptFunc: func(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error) {
					t.Fatal("gate must not be consulted for invalid input")
					return models.LockoutDecision{}, nil
				},
			}

			req := handlers.NewTestRequest(t, http.MethodPost, "/api/password/check", tt.body)
			w := httptest.NewRecorder()
			handlers.NewPasswordHandler(gate).Check(w, req)

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, tt.wantError)
		})
	}
}

func TestCheckBlocked(t *testing.T) {
	var gotAxes models.IdentityAxes
	gate := &handlers.MockLockoutGate{
		IsIdentityBlockedFunc: func(ctx context.Context, axes models.IdentityAxes) (bool, error) {
			gotAxes = axes
			return axes.Email == "blocked@x.com", nil
		},
	}
	handler := handlers.NewPasswordHandler(gate)

	req := httptest.NewRequest(http.MethodGet, "/api/password/check-blocked?email=Blocked@X.com", nil)
	req.Header.Set("X-Device-Fingerprint", "fp-9")
	w := httptest.NewRecorder()
	handler.CheckBlocked(w, req)

	var resp handlers.CheckBlockedResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Blocked)
	assert.Equal(t, "fp-9", gotAxes.DeviceFingerprint)

	w = httptest.NewRecorder()
	handler.CheckBlocked(w, httptest.NewRequest(http.MethodGet, "/api/password/check-blocked", nil))

	resp = handlers.CheckBlockedResponse{}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.False(t, resp.Blocked)
}

func TestCheckBlocked_StorageFailure(t *testing.T) {
	gate := &handlers.MockLockoutGate{
		IsIdentityBlockedFunc: func(ctx context.Context, axes models.IdentityAxes) (bool, error) {
			return false, models.ErrStorage
		},
	}

	w := httptest.NewRecorder()
	handlers.NewPasswordHandler(gate).CheckBlocked(w, httptest.NewRequest(http.MethodGet, "/api/password/check-blocked?email=a@x.com", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
