package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/chatgate/internal/auth"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/BradenHooton/chatgate/internal/services"
	"github.com/BradenHooton/chatgate/internal/session"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
)

const (
	msgNoAttemptsLeft    = "NO ATTEMPTS LEFT"
	msgIncorrectPassword = "Incorrect password"
)

// LockoutGate defines the gate operations used by the password endpoints
type LockoutGate interface {
	IsIdentityBlocked(ctx context.Context, axes models.IdentityAxes) (bool, error)
	CheckAttempt(ctx context.Context, candidate string, axes models.IdentityAxes, counter services.AttemptCounter) (models.LockoutDecision, error)
}

// PasswordHandler exposes the lockout gate over HTTP
type PasswordHandler struct {
	gate LockoutGate
}

// NewPasswordHandler creates a new PasswordHandler
func NewPasswordHandler(gate LockoutGate) *PasswordHandler {
	return &PasswordHandler{gate: gate}
}

// CheckPasswordRequest represents the request body for a passcode attempt
type CheckPasswordRequest struct {
	Password string `json:"password" validate:"required,max=256"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// CheckPasswordResponse is the outcome of a passcode attempt
type CheckPasswordResponse struct {
	Success  bool   `json:"success"`
	Blocked  bool   `json:"blocked"`
	Attempts int    `json:"attempts,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CheckBlockedResponse reports whether an identity is blocked
type CheckBlockedResponse struct {
	Blocked bool `json:"blocked"`
}

// Check handles a passcode attempt
// @Summary Check the shared passcode
// @Accept json
// @Param request body CheckPasswordRequest true "Passcode attempt"
// @Produce json
// @Success 200 {object} CheckPasswordResponse
// @Failure 401 {object} CheckPasswordResponse
// @Failure 403 {object} CheckPasswordResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/password/check [post]
func (h *PasswordHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	axes := requestAxes(r, req.Email)

	// A nil *session.Session must not become a non-nil interface value
	var counter services.AttemptCounter
	sess := session.FromContext(r.Context())
	if sess != nil {
		counter = sess
	}

	decision, err := h.gate.CheckAttempt(r.Context(), req.Password, axes, counter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch {
	case decision.Allowed:
		if sess != nil {
			sess.Admit()
		}
		pkghttp.WriteJSON(w, http.StatusOK, CheckPasswordResponse{Success: true})
	case decision.Blocked:
		if sess != nil {
			sess.Revoke()
		}
		pkghttp.WriteJSON(w, http.StatusForbidden, CheckPasswordResponse{
			Blocked: true,
			Message: msgNoAttemptsLeft,
		})
	default:
		pkghttp.WriteJSON(w, http.StatusUnauthorized, CheckPasswordResponse{
			Attempts: decision.Attempts,
			Message:  msgIncorrectPassword,
		})
	}
}

// CheckBlocked reports whether the caller's identity is blocked without
// changing any counter.
// @Summary Probe the block state
// @Param email query string false "Email to check"
// @Produce json
// @Success 200 {object} CheckBlockedResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/password/check-blocked [get]
func (h *PasswordHandler) CheckBlocked(w http.ResponseWriter, r *http.Request) {
	axes := requestAxes(r, r.URL.Query().Get("email"))

	blocked, err := h.gate.IsIdentityBlocked(r.Context(), axes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, CheckBlockedResponse{Blocked: blocked})
}

// requestAxes builds the caller's identity from the explicit email, falling
// back to the signed-in account, plus the device headers.
func requestAxes(r *http.Request, email string) models.IdentityAxes {
	if email == "" {
		if claims := auth.GetAccountFromContext(r); claims != nil {
			email = claims.Email
		}
	}

	headers := pkghttp.ExtractIdentityHeaders(r)
	return models.NewIdentityAxes(email, headers.DeviceFingerprint, headers.AgentString)
}

// writeServiceError maps service sentinels onto the JSON error envelope
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteValidationError(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrAccountBlocked), errors.Is(err, models.ErrPermanentlyBlocked):
		pkghttp.WriteForbidden(w, msgNoAttemptsLeft)
	case errors.Is(err, models.ErrDuplicateAccount), errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Account already exists")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
