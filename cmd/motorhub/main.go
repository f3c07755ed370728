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

	"github.com/motorhub/motorhub/internal/app"
	"github.com/motorhub/motorhub/internal/booking"
	"github.com/motorhub/motorhub/internal/listings"
	"github.com/motorhub/motorhub/internal/observability"
	"github.com/motorhub/motorhub/internal/platform/cache"
	"github.com/motorhub/motorhub/internal/platform/db"
	"github.com/motorhub/motorhub/internal/promotion"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
	"github.com/motorhub/motorhub/internal/users"
	"github.com/motorhub/motorhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping api startup")
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

	// The grant matrix is validated before anything else starts.
	matrix, err := rbac.NewMatrix(rbac.DefaultGrants()...)
	if err != nil {
		logger.Error("build permission matrix", slog.Any("error", err))
		os.Exit(1)
	}
	guard := rbac.NewGuard(matrix)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	dispatcher, err := jobs.NewClient(redisOpts, jobs.ClientOptions{Queue: cfg.NotifyQueue, MaxRetry: cfg.NotifyMaxRetry})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Guard: guard, Logger: logger}

	bookingService := booking.NewService(booking.NewRepository(dbpool), guard, dispatcher, logger, booking.Options{
		DispatchTimeout: cfg.NotifyDispatchTimeout,
		Observer:        metrics,
	})

	listingsService := listings.NewService(listings.NewRepository(dbpool), guard, logger, metrics)

	approvals := shared.NewApprovalRecorder(dbpool, logger)
	promotionService := promotion.NewService(promotion.NewRepository(dbpool, approvals), listingsService, guard, dispatcher, logger, promotion.Options{
		Catalogue:       promotion.DefaultCatalogue(),
		DispatchTimeout: cfg.NotifyDispatchTimeout,
		Observer:        metrics,
	})

	usersService := users.NewService(users.NewRepository(dbpool, shared.NewAuditLogger(dbpool)), guard, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RBACMiddleware:     rbacMiddleware,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, guard),
		BookingHandler:     booking.NewHandler(logger, bookingService, rbacMiddleware),
		PromotionHandler:   promotion.NewHandler(logger, promotionService, rbacMiddleware),
		ListingsHandler:    listings.NewHandler(logger, listingsService),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, cfg.NotifyQueue, logger),
		Readiness: map[string]app.ReadinessCheck{
			"postgres": dbpool.Ping,
			"redis": func(ctx context.Context) error {
				return cache.Ping(ctx, redisClient, time.Second)
			},
		},
		Metrics: metrics,
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
