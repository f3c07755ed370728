package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/motorhub/motorhub/internal/jobs"
	"github.com/motorhub/motorhub/internal/notify"
	"github.com/motorhub/motorhub/internal/shared"
)

const idempotencyModule = "notify"

// KeyStore records delivered notification ids.
type KeyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// DeliverJob hands queued notifications to the Sender at most once per id.
type DeliverJob struct {
	Sender  notify.Sender
	Keys    KeyStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDeliverJob constructs the delivery handler.
func NewDeliverJob(sender notify.Sender, keys KeyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeliverJob {
	return &DeliverJob{Sender: sender, Keys: keys, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDeliverNotification tasks.
func (j *DeliverJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Sender == nil || j.Keys == nil {
		return errors.New("deliver notification: dependencies not configured")
	}
	var payload DeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode notification: %v: %w", err, asynq.SkipRetry)
	}
	n := payload.Notification
	key := n.ID.String()

	tracker := metricsOrDefault(j.Metrics).Track(TaskDeliverNotification)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := loggerOrDefault(j.Logger, TaskDeliverNotification).With(
		slog.String("notification_id", key),
		slog.String("kind", string(n.Kind)),
	)

	if err := j.Keys.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			logger.Info("notification already delivered")
			return nil
		}
		return err
	}
	if err := j.Sender.Send(ctx, n); err != nil {
		if delErr := j.Keys.Delete(ctx, key); delErr != nil {
			logger.Error("release idempotency key", slog.Any("error", delErr))
		}
		logger.Warn("notification delivery failed", slog.Any("error", err))
		return err
	}
	return nil
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func loggerOrDefault(logger *slog.Logger, job string) *slog.Logger {
	if logger != nil {
		return logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

var defaultJobMetrics = jobmetrics.NewMetrics(nil)
