package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/notify"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
)

const (
	entityName  = "booking"
	systemActor = "system"
)

// Repository describes persistence operations used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (Booking, error)
	ListExpirable(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	Insert(ctx context.Context, b Booking) error
	// UpdateStatus writes b only if the stored version still equals expectedVersion,
	// returning shared.ErrConcurrentModification otherwise.
	UpdateStatus(ctx context.Context, b Booking, expectedVersion int64) error
	InsertStatusChange(ctx context.Context, change StatusChange) error
}

// Options tunes Service behaviour.
type Options struct {
	DispatchTimeout time.Duration
	Observer        shared.TransitionObserver
	Now             func() time.Time
}

// Service orchestrates the booking lifecycle.
type Service struct {
	repo       Repository
	guard      rbac.Guard
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	timeout    time.Duration
	observer   shared.TransitionObserver
	now        func() time.Time
}

// NewService constructs the booking service.
func NewService(repo Repository, guard rbac.Guard, dispatcher notify.Dispatcher, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = notify.DefaultTimeout
	}
	if opts.Observer == nil {
		opts.Observer = shared.NopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:       repo,
		guard:      guard,
		dispatcher: dispatcher,
		logger:     logger,
		timeout:    opts.DispatchTimeout,
		observer:   opts.Observer,
		now:        opts.Now,
	}
}

// Create books a service for the acting customer.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, req CreateBookingRequest) (Booking, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Booking{}, err
	}
	now := s.now().UTC()
	if !req.ScheduledAt.After(now) {
		return Booking{}, shared.Invalid("scheduled_at", "must be in the future")
	}
	if req.ProviderID == actor.ID {
		return Booking{}, shared.Invalid("provider_id", "cannot book your own service")
	}
	if err := s.guard.Authorize(actor.Role, rbac.PermCreateBookings); err != nil {
		return Booking{}, err
	}

	status := StatusPending
	if req.Draft {
		status = StatusDraft
	}
	b := Booking{
		ID:          uuid.New(),
		ServiceID:   req.ServiceID,
		ProviderID:  req.ProviderID,
		CustomerID:  actor.ID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      status,
		Notes:       req.Notes,
		Price:       req.Price,
		Currency:    req.Currency,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Insert(ctx, b)
	})
	if err != nil {
		return Booking{}, fmt.Errorf("booking: create: %w", err)
	}
	s.logger.InfoContext(ctx, "booking created",
		slog.String("booking_id", b.ID.String()),
		slog.String("status", string(b.Status)),
		slog.String("actor_role", actor.Role.String()),
	)
	return b, nil
}

// Get returns a booking visible to the actor: its customer, its provider, or a role
// holding manage_all_bookings.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	ok, err := s.guard.AllowScoped(actor.Role, rbac.PermManageAllBookings,
		rbac.Scope{Owner: actor.ID == b.CustomerID, Permission: rbac.PermManageOwnBookings},
		rbac.Scope{Owner: actor.ID == b.ProviderID, Permission: rbac.PermManageServiceBookings},
	)
	if err != nil {
		return Booking{}, err
	}
	if !ok {
		return Booking{}, shared.Deny(actor.Role.String(), "view booking")
	}
	return b, nil
}

// Transition applies a user action to a booking. Checks run in a fixed order: input
// validation, load, expected version, legality, authorization, conditional write.
func (s *Service) Transition(ctx context.Context, actor rbac.Actor, req TransitionRequest) (result TransitionResult, err error) {
	defer func() {
		s.observer.ObserveTransition(entityName, string(req.Action), shared.Outcome(err))
	}()

	if err := s.validateTransition(req); err != nil {
		return TransitionResult{}, err
	}
	current, err := s.repo.Get(ctx, req.BookingID)
	if err != nil {
		return TransitionResult{}, err
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		return TransitionResult{}, fmt.Errorf("%w: booking %s is at version %d", shared.ErrConcurrentModification, current.ID, current.Version)
	}
	to, ok := Next(current.Status, req.Action)
	if !ok {
		return TransitionResult{}, shared.IllegalTransition(entityName, string(current.Status), string(req.Action))
	}
	if err := s.authorize(actor, current, req.Action); err != nil {
		return TransitionResult{}, err
	}
	return s.apply(ctx, actor, current, to, req)
}

// Expire moves a non-terminal booking to expired. It is triggered by the scheduler
// and performs no permission check.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (b Booking, err error) {
	defer func() {
		s.observer.ObserveTransition(entityName, string(ActionExpire), shared.Outcome(err))
	}()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	to, ok := Next(current.Status, ActionExpire)
	if !ok {
		return Booking{}, shared.IllegalTransition(entityName, string(current.Status), string(ActionExpire))
	}
	res, err := s.apply(ctx, rbac.Actor{}, current, to, TransitionRequest{BookingID: id, Action: ActionExpire, Reason: "scheduled time passed"})
	if err != nil {
		return Booking{}, err
	}
	return res.Booking, nil
}

// ListExpirable returns ids of draft or pending bookings scheduled before cutoff.
func (s *Service) ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	return s.repo.ListExpirable(ctx, cutoff, limit)
}

func (s *Service) validateTransition(req TransitionRequest) error {
	if err := shared.ValidateStruct(req); err != nil {
		return err
	}
	if !req.Action.IsValid() {
		return shared.Invalid("action", fmt.Sprintf("unknown action %q", req.Action))
	}
	if req.Action.RequiresReason() && shared.IsBlank(req.Reason) {
		return shared.Invalid("reason", "is required to "+string(req.Action))
	}
	if req.Action == ActionReschedule {
		if req.ScheduledAt == nil || req.ScheduledAt.IsZero() {
			return shared.Invalid("scheduled_at", "is required to reschedule")
		}
		if req.ScheduledAt.Before(s.now()) {
			return shared.Invalid("scheduled_at", "must not be in the past")
		}
	}
	return nil
}

func (s *Service) authorize(actor rbac.Actor, b Booking, action Action) error {
	if action.IsSystem() {
		return shared.Deny(actor.Role.String(), string(action)+" bookings")
	}
	customer := rbac.Scope{Owner: actor.ID == b.CustomerID, Permission: rbac.PermManageOwnBookings}
	provider := rbac.Scope{Owner: actor.ID == b.ProviderID, Permission: rbac.PermManageServiceBookings}

	var (
		ok  bool
		err error
	)
	switch action {
	case ActionSubmit:
		ok, err = s.guard.AllowScoped(actor.Role, "", customer)
	case ActionConfirm, ActionReject:
		ok, err = s.guard.AllowScoped(actor.Role, rbac.PermManageAllBookings, provider)
	default:
		ok, err = s.guard.AllowScoped(actor.Role, rbac.PermManageAllBookings, customer, provider)
	}
	if err != nil {
		return err
	}
	if !ok {
		return shared.Deny(actor.Role.String(), string(action)+" booking "+b.ID.String())
	}
	return nil
}

func (s *Service) apply(ctx context.Context, actor rbac.Actor, current Booking, to Status, req TransitionRequest) (TransitionResult, error) {
	now := s.now().UTC()
	actorRole := actor.Role.String()
	if actorRole == "" {
		actorRole = systemActor
	}
	updated := current
	updated.Status = to
	updated.StatusReason = req.Reason
	updated.Version = current.Version + 1
	updated.UpdatedAt = now
	if req.Action == ActionReschedule {
		updated.ScheduledAt = req.ScheduledAt.UTC()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, updated, current.Version); err != nil {
			return err
		}
		return tx.InsertStatusChange(ctx, StatusChange{
			BookingID: current.ID,
			From:      current.Status,
			To:        to,
			Action:    req.Action,
			ActorID:   actor.ID,
			ActorRole: actorRole,
			Reason:    req.Reason,
			At:        now,
		})
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			s.logger.InfoContext(ctx, "booking transition lost race",
				slog.String("booking_id", current.ID.String()),
				slog.String("action", string(req.Action)),
			)
		}
		return TransitionResult{}, err
	}

	result := TransitionResult{Booking: updated}
	if req.Action.Notifies() {
		result.Warning = notify.Post(ctx, s.dispatcher, s.timeout, notify.Notification{
			Kind:       notify.KindBookingStatusChanged,
			EntityID:   current.ID,
			Recipients: recipients(actor, current),
			OldStatus:  string(current.Status),
			NewStatus:  string(to),
			ActorRole:  actorRole,
			Reason:     req.Reason,
			Amount:     current.Price,
			Currency:   current.Currency,
			OccurredAt: now,
		}, s.logger)
		if result.Warning != nil {
			s.observer.ObserveDispatchWarning(entityName)
		}
	}
	s.logger.InfoContext(ctx, "booking transitioned",
		slog.String("booking_id", current.ID.String()),
		slog.String("from", string(current.Status)),
		slog.String("to", string(to)),
		slog.String("action", string(req.Action)),
		slog.String("actor_role", actorRole),
	)
	return result, nil
}

// recipients returns the counterparties of the actor; for a third party (admin or
// system) both customer and provider are notified.
func recipients(actor rbac.Actor, b Booking) []uuid.UUID {
	switch actor.ID {
	case b.CustomerID:
		return []uuid.UUID{b.ProviderID}
	case b.ProviderID:
		return []uuid.UUID{b.CustomerID}
	default:
		return []uuid.UUID{b.CustomerID, b.ProviderID}
	}
}
