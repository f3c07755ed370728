package notify

import (
	"context"
	"log/slog"
)

// LogSender writes rendered notifications to the structured log. It is the delivery
// channel used until a mail or push provider is attached to the worker.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s LogSender) Send(ctx context.Context, n Notification) error {
	msg, err := Render(n)
	if err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, recipient := range n.Recipients {
		logger.InfoContext(ctx, "notification delivered",
			slog.String("notification_id", n.ID.String()),
			slog.String("kind", string(n.Kind)),
			slog.String("recipient", recipient.String()),
			slog.String("subject", msg.Subject),
			slog.String("body", msg.Body),
		)
	}
	return nil
}
