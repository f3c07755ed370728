// Package notify defines the notification dispatch contract used by the lifecycle engines.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the message template.
type Kind string

const (
	KindBookingStatusChanged Kind = "booking.status_changed"
	KindPlanUpgraded         Kind = "promotion.plan_upgraded"
	KindUpgradeRejected      Kind = "promotion.rejected"
)

// Change describes one attribute of a benefit delta.
type Change struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Notification is the structured payload handed to the dispatcher after a commit.
type Notification struct {
	ID         uuid.UUID   `json:"id"`
	Kind       Kind        `json:"kind"`
	EntityID   uuid.UUID   `json:"entity_id"`
	Recipients []uuid.UUID `json:"recipients"`
	OldStatus  string      `json:"old_status"`
	NewStatus  string      `json:"new_status"`
	ActorRole  string      `json:"actor_role"`
	Reason     string      `json:"reason,omitempty"`
	Changes    []Change    `json:"changes,omitempty"`
	Amount     float64     `json:"amount,omitempty"`
	Currency   string      `json:"currency,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Dispatcher hands a notification to the delivery collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Sender delivers a notification to its recipients.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n Notification) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, n Notification) error { return f(ctx, n) }

// Warning reports a dispatch failure after a committed transition.
type Warning struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Kind           Kind      `json:"kind"`
	Message        string    `json:"message"`
	Err            error     `json:"-"`
}

func (w *Warning) Error() string {
	return fmt.Sprintf("notify: %s %s not dispatched: %v", w.Kind, w.NotificationID, w.Err)
}

// Unwrap exposes the dispatch error.
func (w *Warning) Unwrap() error { return w.Err }
