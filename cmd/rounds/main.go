package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rounds-hq/rounds/internal/app"
	"github.com/rounds-hq/rounds/internal/audit"
	audithttp "github.com/rounds-hq/rounds/internal/audit/http"
	"github.com/rounds-hq/rounds/internal/auth"
	"github.com/rounds-hq/rounds/internal/observability"
	"github.com/rounds-hq/rounds/internal/platform/cache"
	"github.com/rounds-hq/rounds/internal/platform/db"
	"github.com/rounds-hq/rounds/internal/rbac"
	"github.com/rounds-hq/rounds/internal/shared"
	"github.com/rounds-hq/rounds/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// Authorization data must exist before the first request is served.
	seeder := rbac.NewSeeder(pool)
	if err := seeder.Verify(ctx); err != nil {
		logger.Error("verify seed data", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "rounds_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	authRepo := auth.NewPGRepository(pool)
	authService := auth.NewService(authRepo, logger)
	authHandler := auth.NewHandler(logger, authService)

	rbacRepo := rbac.NewRepository(pool)
	resolver := rbac.NewResolver(rbacRepo)
	checker := rbac.NewChecker(resolver)
	contexts := rbac.NewContextStore(redisClient, cfg.ContextTTL)
	rbacService := rbac.NewService(rbacRepo, resolver, contexts, logger)
	rbacMiddleware := rbac.Middleware{Checker: checker, Logger: logger, Observer: metrics}
	rbacHandler := rbac.NewHandler(logger, rbacService, resolver, rbacMiddleware)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	enqueuer := jobs.NewEnqueuer(asynqClient)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditExporter := audit.NewExporter()
	auditHandler := audithttp.NewHandler(logger, auditService, auditExporter, enqueuer)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		AuthHandler:    authHandler,
		RBACHandler:    rbacHandler,
		AuditHandler:   auditHandler,
		RBACMiddleware: rbacMiddleware,
		Metrics:        metrics,
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
