package listings

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
	Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Listing, error)
	Publish(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Listing, error)
	Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Listing, error)
}

// Handler serves listing endpoints.
type Handler struct {
	logger  *slog.Logger
	service ServicePort
}

// NewHandler builds a listings handler.
func NewHandler(logger *slog.Logger, service ServicePort) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers listing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.handle("show listing", http.StatusOK, h.service.Get))
	r.Post("/{id}/publish", h.handle("publish listing", http.StatusOK, h.service.Publish))
	r.Delete("/{id}", h.handle("delete listing", http.StatusOK, h.service.Delete))
}

type listingOp func(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Listing, error)

func (h *Handler) handle(name string, status int, op listingOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := rbac.RequireActor(w, r)
		if !ok {
			return
		}
		id, err := httpx.UUIDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		l, err := op(r.Context(), actor, id)
		if err != nil {
			httpx.Fail(w, r, h.logger, name, err)
			return
		}
		httpx.JSON(w, status, l)
	}
}
