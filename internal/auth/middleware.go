package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/chatgate/internal/models"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
)

type contextKey string

// AccountContextKey is the key for storing account claims in context
const AccountContextKey contextKey = "account"

// TokenValidator validates access tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// IdentityMiddleware attaches the caller's account claims to the context when
// a valid token is presented in the Authorization header or the access token
// cookie. Requests without a valid token pass through anonymously.
func IdentityMiddleware(tv TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tv.ValidateToken(tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccount rejects requests that IdentityMiddleware left anonymous
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAccountFromContext(r) == nil {
			pkghttp.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetAccountFromContext extracts account claims from request context
func GetAccountFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(AccountContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithAccount returns a copy of ctx carrying claims
func WithAccount(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, AccountContextKey, claims)
}

func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookie, err := r.Cookie(AccessTokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
