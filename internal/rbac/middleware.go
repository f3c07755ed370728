package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/shared"
)

// Headers set by the trusted gateway in front of the API.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Guard  Guard
	Logger *slog.Logger
}

// Identify loads the actor from gateway headers into the request context.
func (m Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawID := strings.TrimSpace(r.Header.Get(HeaderActorID))
		rawRole := r.Header.Get(HeaderActorRole)
		if rawID == "" || strings.TrimSpace(rawRole) == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			m.logger().Warn("rbac parse actor id", slog.String("value", rawID))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		role, err := ParseRole(rawRole)
		if err != nil {
			m.logger().Warn("rbac parse actor role", slog.String("value", rawRole))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		ctx := ContextWithActor(r.Context(), Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require("rbac require any", normalized, m.Guard.IsAllowedAny)
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require("rbac require all", normalized, m.Guard.IsAllowedAll)
}

func (m Middleware) require(op string, perms []Permission, check func(Role, ...Permission) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			granted, err := check(actor.Role, perms...)
			if err != nil {
				if errors.Is(err, shared.ErrConfiguration) {
					m.logger().Error(op, slog.String("role", string(actor.Role)), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if granted {
				next.ServeHTTP(w, r)
				return
			}
			m.logger().Info("rbac denied", slog.String("role", string(actor.Role)), slog.String("path", r.URL.Path))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func normalizePermissions(perms []Permission) []Permission {
	unique := make(map[Permission]struct{}, len(perms))
	normalized := make([]Permission, 0, len(perms))
	for _, p := range perms {
		p = Permission(strings.TrimSpace(strings.ToLower(string(p))))
		if p == "" {
			continue
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
