package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webpage-auth/webpage/internal/app"
	"github.com/webpage-auth/webpage/internal/auth"
	"github.com/webpage-auth/webpage/internal/observability"
	"github.com/webpage-auth/webpage/internal/password"
	"github.com/webpage-auth/webpage/internal/platform/cache"
	"github.com/webpage-auth/webpage/internal/platform/db"
	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/users"
	"github.com/webpage-auth/webpage/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		logger.Error("migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	responder := view.NewResponder(logger, templates)
	metrics := observability.NewMetrics()
	hasher := password.NewHasher(cfg.PasswordParams())

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, hasher)
	usersHandler := users.NewHandler(logger, usersService, responder, metrics, auth.RequireUser)

	authService := auth.NewService(usersRepo, hasher)
	authHandler := auth.NewHandler(logger, authService, responder, sessionManager, metrics, cfg.LoginRateLimit)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Responder:      responder,
		SessionManager: sessionManager,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		Metrics:        metrics,
		RequestLogging: true,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
