package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/motorhub/motorhub/internal/app"
	"github.com/motorhub/motorhub/internal/booking"
	jobmetrics "github.com/motorhub/motorhub/internal/jobs"
	"github.com/motorhub/motorhub/internal/notify"
	"github.com/motorhub/motorhub/internal/platform/cache"
	"github.com/motorhub/motorhub/internal/platform/db"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
	"github.com/motorhub/motorhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	matrix, err := rbac.NewMatrix(rbac.DefaultGrants()...)
	if err != nil {
		logger.Error("build permission matrix", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	dispatcher, err := jobs.NewClient(redisOpts, jobs.ClientOptions{Queue: cfg.NotifyQueue, MaxRetry: cfg.NotifyMaxRetry})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = dispatcher.Close()
	}()

	metrics := jobmetrics.NewMetrics(nil)
	keys := shared.NewIdempotencyStore(pool)

	bookingService := booking.NewService(booking.NewRepository(pool), rbac.NewGuard(matrix), dispatcher, logger, booking.Options{
		DispatchTimeout: cfg.NotifyDispatchTimeout,
	})

	deliverJob := jobs.NewDeliverJob(notify.LogSender{Logger: logger}, keys, logger, metrics)
	sweepJob := jobs.NewExpireSweepJob(bookingService, cfg.BookingExpiryBatch, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(keys, cfg.IdempotencyRetention, logger, metrics)

	sweepTask, err := jobs.NewExpireSweepTask(cfg.BookingExpiryBatch)
	if err != nil {
		logger.Error("build expire sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(cfg.IdempotencyRetention)
	if err != nil {
		logger.Error("build idempotency cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:          redisOpts,
		Logger:             logger,
		Concurrency:        cfg.WorkerConcurrency,
		NotificationsQueue: cfg.NotifyQueue,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDeliverNotification, Handler: deliverJob.Handle},
			{Type: jobs.TaskBookingExpireSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.BookingExpiryCron, Task: sweepTask},
			{Spec: cfg.IdempotencyCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
