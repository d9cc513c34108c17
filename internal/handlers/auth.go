package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BradenHooton/chatgate/internal/auth"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/BradenHooton/chatgate/internal/services"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
)

// IdentityProvider defines the account operations used by the auth endpoints
type IdentityProvider interface {
	Signup(ctx context.Context, email, password string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
}

// SessionEnder ends the caller's server-side session
type SessionEnder interface {
	Destroy(w http.ResponseWriter, r *http.Request)
}

// AuthHandler handles signup, login and logout
type AuthHandler struct {
	service      IdentityProvider
	sessions     SessionEnder
	cookieConfig auth.CookieConfig
	tokenExpiry  time.Duration
}

// NewAuthHandler creates a new AuthHandler. sessions may be nil.
func NewAuthHandler(service IdentityProvider, sessions SessionEnder, cookieConfig auth.CookieConfig, tokenExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		service:      service,
		sessions:     sessions,
		cookieConfig: cookieConfig,
		tokenExpiry:  tokenExpiry,
	}
}

// Request DTOs

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup creates a password account and signs it in
// @Summary Account signup
// @Accept json
// @Param request body SignupRequest true "Signup request"
// @Produce json
// @Success 201 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	authResp, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAccountBlocked):
			pkghttp.WriteForbidden(w, "Account is blocked")
		case errors.Is(err, models.ErrDuplicateAccount):
			pkghttp.WriteConflict(w, "Email already registered")
		default:
			writeServiceError(w, err)
		}
		return
	}

	auth.SetAccessTokenCookie(w, authResp.AccessToken, h.tokenExpiry, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusCreated, authResp)
}

// Login handles password login
// @Summary Account login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAccountBlocked):
			pkghttp.WriteForbidden(w, "Account is blocked")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			writeServiceError(w, err)
		}
		return
	}

	auth.SetAccessTokenCookie(w, authResp.AccessToken, h.tokenExpiry, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Logout clears the access token cookie and ends the session, including its
// gate admission.
// @Summary Logout
// @Success 204
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearAccessTokenCookie(w, h.cookieConfig)
	if h.sessions != nil {
		h.sessions.Destroy(w, r)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in account
// @Summary Current account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.AccountResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAccountFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	account, err := h.service.GetAccount(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.ToAccountResponse(account))
}
