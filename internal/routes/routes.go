package routes

import (
	"net/http"
	"time"

	"github.com/BradenHooton/chatgate/internal/auth"
	"github.com/BradenHooton/chatgate/internal/handlers"
	"github.com/BradenHooton/chatgate/internal/middleware"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Password *handlers.PasswordHandler
	Messages *handlers.MessageHandler
	Auth     *handlers.AuthHandler
	Socket   *handlers.ChatSocketHandler
	Health   http.HandlerFunc
}

// RegisterRoutes registers all application routes. sessions must run before
// any handler that reads the gate session. The socket route has no request
// timeout since its context lives as long as the connection.
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenValidator auth.TokenValidator,
	sessions func(http.Handler) http.Handler,
	ipConfig *pkghttp.IPConfig,
) {
	gateLimit := middleware.DefaultGateRateLimit()
	gateLimit.IPConfig = ipConfig
	authLimit := middleware.DefaultAuthRateLimit()
	authLimit.IPConfig = ipConfig

	router.Get("/health", h.Health)

	router.Group(func(r chi.Router) {
		r.Use(sessions)
		r.Use(auth.IdentityMiddleware(tokenValidator))

		r.Get("/ws", h.Socket.Serve)

		r.Route("/api", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(60 * time.Second))

			r.Get("/messages", h.Messages.List)
			r.Get("/messages/{id}", h.Messages.Get)

			r.Route("/password", func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(gateLimit))
				r.Post("/check", h.Password.Check)
				r.Get("/check-blocked", h.Password.CheckBlocked)
			})

			r.Route("/auth", func(r chi.Router) {
				credentials := middleware.RateLimitByIP(authLimit)
				r.With(credentials).Post("/signup", h.Auth.Signup)
				r.With(credentials).Post("/login", h.Auth.Login)
				r.Post("/logout", h.Auth.Logout)
				r.With(auth.RequireAccount).Get("/me", h.Auth.Me)
			})
		})
	})
}
