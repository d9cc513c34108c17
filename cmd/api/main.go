package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/chatgate/internal/auth"
	"github.com/BradenHooton/chatgate/internal/background"
	"github.com/BradenHooton/chatgate/internal/config"
	"github.com/BradenHooton/chatgate/internal/database"
	"github.com/BradenHooton/chatgate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/chatgate/internal/middleware"
	"github.com/BradenHooton/chatgate/internal/repositories"
	"github.com/BradenHooton/chatgate/internal/routes"
	"github.com/BradenHooton/chatgate/internal/services"
	"github.com/BradenHooton/chatgate/internal/session"
	pkghttp "github.com/BradenHooton/chatgate/pkg/http"
	pkglogger "github.com/BradenHooton/chatgate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("message_store", cfg.Chat.StoreBackend))

	// Initialize database (applies migrations when DB_RUN_MIGRATIONS is set)
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
	startupCancel()
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	blockRepo := repositories.NewBlockRecordRepository(db)

	messageStore, closeStore, err := openMessageStore(cfg, db, logger)
	if err != nil {
		logger.Error("failed to open message store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	// Initialize security services
	auditLogger := pkglogger.NewAuditLogger(logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.TimingDelayBase,
		RandomDelay: cfg.Auth.TimingDelayRandom,
	})

	notifier, err := newLockoutNotifier(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize lockout notifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	lockoutService := services.NewLockoutService(accountRepo, blockRepo, notifier, services.LockoutConfig{
		Passcode:    cfg.Gate.Passcode,
		MaxAttempts: cfg.Gate.MaxAttempts,
	}, logger, auditLogger)
	identityService := services.NewIdentityService(accountRepo, tokenManager, timingDelay, logger, auditLogger)
	messageService := services.NewMessageService(messageStore, logger)
	hub := services.NewHub(messageStore, logger)

	sessionManager := session.NewManager(session.Config{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Auth.CookieSecure,
		SameSite:   auth.ParseSameSite(cfg.Auth.CookieSameSite),
	}, logger)
	cleanupManager := background.NewCleanupManager("sessions", sessionManager, logger, cfg.Session.CleanupInterval)

	// Initialize handlers
	cookieConfig := auth.CookieConfig{Secure: cfg.Auth.CookieSecure, SameSite: cfg.Auth.CookieSameSite}
	h := routes.Handlers{
		Password: handlers.NewPasswordHandler(lockoutService),
		Messages: handlers.NewMessageHandler(messageService),
		Auth:     handlers.NewAuthHandler(identityService, sessionManager, cookieConfig, cfg.Auth.AccessTokenExpiry),
		Socket: handlers.NewChatSocketHandler(hub, handlers.SocketConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequireGate:    cfg.Gate.RequireGate,
			QueueSize:      cfg.Chat.ClientQueueSize,
			PingInterval:   cfg.Chat.PingInterval,
		}, logger),
		Health: handlers.Health(db, hub),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env))
	router.Use(middleware.Recoverer)

	routes.RegisterRoutes(router, h, tokenManager, sessionManager.Middleware,
		&pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// hijacked socket connections are not tracked by Shutdown; closing the
	// hub's queues makes every writer send a close frame
	hub.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// openMessageStore selects the chat log backend. The returned func releases it.
func openMessageStore(cfg *config.Config, db *database.DB, logger *slog.Logger) (services.MessageStore, func(), error) {
	switch cfg.Chat.StoreBackend {
	case config.StoreBackendBadger:
		bdb, err := repositories.OpenBadger(cfg.Chat.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		store, err := repositories.NewBadgerMessageRepository(bdb, logger)
		if err != nil {
			_ = bdb.Close()
			return nil, nil, err
		}
		return store, func() {
			if err := bdb.Close(); err != nil {
				logger.Error("failed to close badger", slog.Any("error", err))
			}
		}, nil
	case config.StoreBackendPostgres:
		return repositories.NewMessageRepository(db), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown message store %q", cfg.Chat.StoreBackend)
	}
}

func newLockoutNotifier(cfg *config.Config, logger *slog.Logger) (services.LockoutNotifier, error) {
	if !cfg.Email.Enabled {
		return services.NewLogLockoutNotifier(logger), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notifier, err := services.NewSESLockoutNotifier(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		return nil, err
	}
	return notifier, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
