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

	"github.com/rosterly/rosterly/internal/access"
	"github.com/rosterly/rosterly/internal/app"
	"github.com/rosterly/rosterly/internal/audit"
	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/directory"
	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/impersonation"
	"github.com/rosterly/rosterly/internal/observability"
	"github.com/rosterly/rosterly/internal/platform/cache"
	"github.com/rosterly/rosterly/internal/platform/db"
	"github.com/rosterly/rosterly/internal/staffing"
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

	accessTable := access.DefaultTable()
	if err := accessTable.Validate(); err != nil {
		logger.Error("route access table", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
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

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	identityStore := identity.NewRedisStore(redisClient, cfg.SessionTTL)
	manager := identity.NewManager(identityStore, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	userDirectory := directory.NewPGDirectory(pool)
	auditStore := audit.NewPGStore(pool)
	recorder := audit.NewRecorder(auditStore, logger, metrics, taskClient)
	auditService := audit.NewService(auditStore)

	impersonationService := impersonation.NewService(identityStore, userDirectory, recorder, metrics, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Manager:              manager,
		AccessTable:          accessTable,
		Recorder:             recorder,
		AuthHandler:          auth.NewHandler(logger, auth.NewService(userDirectory), manager, recorder),
		ImpersonationHandler: impersonation.NewHandler(logger, impersonationService),
		AuditHandler:         audit.NewHandler(logger, auditService),
		StaffingHandler:      staffing.NewHandler(logger, staffing.NewRepository(pool), recorder),
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
