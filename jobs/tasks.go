package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/motorhub/motorhub/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries notification deliveries.
	QueueNotifications = "notifications"

	// TaskDeliverNotification delivers one committed-transition notification.
	TaskDeliverNotification = "notification:deliver"
	// TaskBookingExpireSweep expires bookings whose scheduled time has passed.
	TaskBookingExpireSweep = "booking:expire-sweep"
	// TaskIdempotencyCleanup purges old idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// DeliverPayload wraps the notification carried by a delivery task.
type DeliverPayload struct {
	Notification notify.Notification `json:"notification"`
}

// NewDeliverTask constructs a delivery task. The task id is the notification id, so a
// retried enqueue of the same notification is rejected by the broker.
func NewDeliverTask(n notify.Notification, queue string, maxRetry int) (*asynq.Task, error) {
	body, err := json.Marshal(DeliverPayload{Notification: n})
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = QueueNotifications
	}
	return asynq.NewTask(TaskDeliverNotification, body,
		asynq.TaskID(n.ID.String()),
		asynq.Queue(queue),
		asynq.MaxRetry(maxRetry),
	), nil
}

// ExpireSweepPayload tunes a sweep run.
type ExpireSweepPayload struct {
	Limit int `json:"limit"`
}

// NewExpireSweepTask builds the cron-driven sweep task.
func NewExpireSweepTask(limit int) (*asynq.Task, error) {
	body, err := json.Marshal(ExpireSweepPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingExpireSweep, body, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}

// IdempotencyCleanupPayload sets the key retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask builds the daily cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
