package promotion

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/platform/httpx"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
)

// ServicePort is the subset of Service used by Handler.
type ServicePort interface {
	Create(ctx context.Context, actor rbac.Actor, in CreateUpgradeRequest) (UpgradeRequest, error)
	Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (UpgradeRequest, error)
	Resolve(ctx context.Context, actor rbac.Actor, in ResolveRequest) (ResolveResult, error)
	History(ctx context.Context, actor rbac.Actor, id uuid.UUID) ([]shared.ApprovalLog, error)
	Catalogue() Catalogue
}

// Handler serves upgrade-request endpoints.
type Handler struct {
	logger  *slog.Logger
	service ServicePort
	rbac    rbac.Middleware
}

// NewHandler builds a promotion handler.
func NewHandler(logger *slog.Logger, service ServicePort, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers upgrade-request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/packages", h.listPackages)
	r.With(h.rbac.RequireAny(rbac.PermRequestListingUpgrade, rbac.PermManageAllListings)).Post("/", h.createRequest)
	r.Get("/{id}", h.showRequest)
	r.Get("/{id}/approvals", h.listApprovals)
	r.Post("/{id}/resolution", h.resolveRequest)
}

func (h *Handler) listPackages(w http.ResponseWriter, r *http.Request) {
	c := h.service.Catalogue()
	httpx.JSON(w, http.StatusOK, map[string]any{"currency": c.Currency(), "packages": c.Tiers()})
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	var in CreateUpgradeRequest
	if err := httpx.BindJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "create upgrade request", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) showRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "show upgrade request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) listApprovals(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	logs, err := h.service.History(r.Context(), actor, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "list upgrade request approvals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) resolveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ResolveRequest
	if err := httpx.BindJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.ID = id
	res, err := h.service.Resolve(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "resolve upgrade request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
