package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a dispatch attempt when no timeout is configured.
const DefaultTimeout = 2 * time.Second

// Post dispatches n under a bounded timeout detached from the caller's cancellation.
// The transition that produced n is already committed, so a failure is returned as
// a Warning and never as an error.
func Post(ctx context.Context, d Dispatcher, timeout time.Duration, n Notification, logger *slog.Logger) *Warning {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if d == nil {
		return warn(n, errors.New("no dispatcher configured"), logger)
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Dispatch(dctx, n)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return warn(n, err, logger)
		}
		return nil
	case <-dctx.Done():
		return warn(n, dctx.Err(), logger)
	}
}

func warn(n Notification, err error, logger *slog.Logger) *Warning {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("notification dispatch failed",
		slog.String("notification_id", n.ID.String()),
		slog.String("kind", string(n.Kind)),
		slog.String("entity_id", n.EntityID.String()),
		slog.Any("error", err),
	)
	return &Warning{NotificationID: n.ID, Kind: n.Kind, Message: "notification dispatch failed: " + err.Error(), Err: err}
}
