// Package booking implements the service booking lifecycle.
package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/notify"
)

// ============================================================================
// BOOKING STATUS
// ============================================================================

// Status represents the lifecycle of a service booking.
type Status string

const (
	StatusDraft     Status = "draft"     // Created by the customer, not yet sent to the provider
	StatusPending   Status = "pending"   // Awaiting provider decision
	StatusConfirmed Status = "confirmed" // Accepted by the provider
	StatusCompleted Status = "complete"  // Service delivered
	StatusRejected  Status = "rejected"  // Declined by the provider
	StatusCancelled Status = "cancelled" // Withdrawn by either party
	StatusExpired   Status = "expired"   // Scheduled time passed without resolution
)

// Statuses lists every booking status.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPending, StatusConfirmed, StatusCompleted, StatusRejected, StatusCancelled, StatusExpired}
}

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusConfirmed, StatusCompleted, StatusRejected, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is legal from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// UnresolvedStatuses are the statuses the expiry sweep picks up once the slot has
// passed. A confirmed booking is left for the provider to complete or cancel.
func UnresolvedStatuses() []Status {
	return []Status{StatusDraft, StatusPending}
}

// IsUnresolved reports whether s still awaits a provider or customer decision.
func (s Status) IsUnresolved() bool {
	return s == StatusDraft || s == StatusPending
}

// ============================================================================
// ACTIONS & TRANSITION TABLE
// ============================================================================

// Action is a lifecycle operation on a booking.
type Action string

const (
	ActionSubmit     Action = "submit"
	ActionConfirm    Action = "confirm"
	ActionReject     Action = "reject"
	ActionComplete   Action = "complete"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionExpire     Action = "expire"
)

// Actions lists every booking action.
func Actions() []Action {
	return []Action{ActionSubmit, ActionConfirm, ActionReject, ActionComplete, ActionCancel, ActionReschedule, ActionExpire}
}

// IsValid checks if the action is known.
func (a Action) IsValid() bool {
	switch a {
	case ActionSubmit, ActionConfirm, ActionReject, ActionComplete, ActionCancel, ActionReschedule, ActionExpire:
		return true
	default:
		return false
	}
}

// RequiresReason reports whether the action must carry a non-blank reason.
func (a Action) RequiresReason() bool {
	return a == ActionReject || a == ActionCancel
}

// Notifies reports whether a successful action dispatches a notification.
func (a Action) Notifies() bool {
	switch a {
	case ActionConfirm, ActionReject, ActionComplete, ActionCancel:
		return true
	default:
		return false
	}
}

// IsSystem reports whether the action is triggered by the scheduler rather than a user.
func (a Action) IsSystem() bool {
	return a == ActionExpire
}

var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmit: StatusPending,
		ActionExpire: StatusExpired,
	},
	StatusPending: {
		ActionConfirm:    StatusConfirmed,
		ActionReject:     StatusRejected,
		ActionCancel:     StatusCancelled,
		ActionReschedule: StatusPending,
		ActionExpire:     StatusExpired,
	},
	StatusConfirmed: {
		ActionComplete:   StatusCompleted,
		ActionCancel:     StatusCancelled,
		ActionReschedule: StatusPending,
		ActionExpire:     StatusExpired,
	},
}

// Next returns the target status for action a from s. Pairs absent from the table are illegal.
func Next(from Status, a Action) (Status, bool) {
	to, ok := transitions[from][a]
	return to, ok
}

// ============================================================================
// BOOKING ENTITY
// ============================================================================

// Booking is a scheduled service engagement between a customer and a provider.
type Booking struct {
	ID           uuid.UUID `json:"id"`
	ServiceID    uuid.UUID `json:"service_id"`
	ProviderID   uuid.UUID `json:"provider_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Status       Status    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusChange is one row of booking_status_history.
type StatusChange struct {
	BookingID uuid.UUID
	From      Status
	To        Status
	Action    Action
	ActorID   uuid.UUID
	ActorRole string
	Reason    string
	At        time.Time
}

// ============================================================================
// REQUEST DTOs
// ============================================================================

// CreateBookingRequest is the createBooking payload. The customer is always the actor.
type CreateBookingRequest struct {
	ServiceID   uuid.UUID `json:"service_id" validate:"required"`
	ProviderID  uuid.UUID `json:"provider_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes" validate:"max=2000"`
	Price       float64   `json:"price" validate:"gte=0"`
	Currency    string    `json:"currency" validate:"required,iso4217"`
	Draft       bool      `json:"draft"`
}

// TransitionRequest is the transitionBooking payload.
type TransitionRequest struct {
	BookingID       uuid.UUID  `json:"-" validate:"required"`
	Action          Action     `json:"action" validate:"required"`
	Reason          string     `json:"reason" validate:"max=1000"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	ExpectedVersion *int64     `json:"expected_version,omitempty"`
}

// TransitionResult carries the committed booking and, when notification dispatch
// failed after commit, a warning.
type TransitionResult struct {
	Booking Booking         `json:"booking"`
	Warning *notify.Warning `json:"warning,omitempty"`
}
