package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/motorhub/motorhub/internal/platform/httpx"
	"github.com/motorhub/motorhub/internal/shared"
)

// PermissionsHandler exposes the matrix read-only so UI callers never re-implement it.
type PermissionsHandler struct {
	logger *slog.Logger
	guard  Guard
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, guard Guard) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, guard: guard}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Get("/check", h.checkPermission)
}

type permissionsResponse struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

type checkResponse struct {
	Role       Role       `json:"role"`
	Permission Permission `json:"permission"`
	Allowed    bool       `json:"allowed"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}
	set, err := h.guard.Matrix().PermissionsFor(role)
	if err != nil {
		h.logger.Error("permissions for role", slog.String("role", string(role)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Role: role, Permissions: set.Slice()})
}

func (h *PermissionsHandler) checkPermission(w http.ResponseWriter, r *http.Request) {
	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}
	perm := Permission(strings.TrimSpace(r.URL.Query().Get("permission")))
	if perm == "" {
		httpx.RespondError(w, shared.Invalid("permission", "is required"))
		return
	}
	allowed, err := h.guard.CheckPermission(role, perm)
	if err != nil {
		h.logger.Error("check permission", slog.String("role", string(role)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Role: role, Permission: perm, Allowed: allowed})
}

func (h *PermissionsHandler) roleParam(w http.ResponseWriter, r *http.Request) (Role, bool) {
	raw := r.URL.Query().Get("role")
	if raw == "" {
		if actor, ok := ActorFromContext(r.Context()); ok {
			return actor.Role, true
		}
	}
	role, err := ParseRole(raw)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("role", "is not a known role"))
		return "", false
	}
	return role, true
}
