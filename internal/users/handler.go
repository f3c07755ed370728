package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/motorhub/motorhub/internal/platform/httpx"
	"github.com/motorhub/motorhub/internal/rbac"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermManageUsers))
		r.Get("/", h.listUsers)
	})
	r.Put("/{id}/role", h.switchRole)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	page, err := httpx.IntQuery(r, "page")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perPage, err := httpx.IntQuery(r, "per_page")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.ListUsers(r.Context(), actor, page, perPage)
	if err != nil {
		httpx.Fail(w, r, h.logger, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) switchRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.RequireActor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req SwitchRoleRequest
	if err := httpx.BindJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.SwitchRole(r.Context(), actor, id, req)
	if err != nil {
		httpx.Fail(w, r, h.logger, "switch role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
