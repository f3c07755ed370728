package booking

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/platform/httpx"
	"github.com/motorhub/motorhub/internal/rbac"
)

// ServicePort is the subset of Service used by Handler.
type ServicePort interface {
	Create(ctx context.Context, actor rbac.Actor, req CreateBookingRequest) (Booking, error)
	Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Booking, error)
	Transition(ctx context.Context, actor rbac.Actor, req TransitionRequest) (TransitionResult, error)
}

// Handler serves booking endpoints.
type Handler struct {
	logger  *slog.Logger
	service ServicePort
	rbac    rbac.Middleware
}

// NewHandler builds a booking handler.
func NewHandler(logger *slog.Logger, service ServicePort, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers booking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermCreateBookings)).Post("/", h.createBooking)
	r.Get("/{id}", h.showBooking)
	r.Post("/{id}/transitions", h.transitionBooking)
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if err := httpx.BindJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.fail(w, r, "create booking", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) showBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, "show booking", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) transitionBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req TransitionRequest
	if err := httpx.BindJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.BookingID = id
	res, err := h.service.Transition(r.Context(), actor, req)
	if err != nil {
		h.fail(w, r, "transition booking", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	httpx.Fail(w, r, h.logger, op, err)
}
