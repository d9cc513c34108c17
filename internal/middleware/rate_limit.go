package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	IPConfig *pkghttp.IPConfig // nil keys on the direct peer address
}

// DefaultGateRateLimit throttles passcode attempts per IP. The lockout gate
// counts failures per identity; this only caps raw request volume.
func DefaultGateRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 20, Window: time.Minute}
}

// DefaultAuthRateLimit returns the limit for signup and login (5 requests per minute)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 5, Window: time.Minute}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// Forwarding headers count only when the peer is a trusted proxy.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests")
		}),
	)
}
