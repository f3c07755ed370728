package rbac

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/platform/httpx"
)

// Actor is the caller of a core operation: its identity, used by callers to
// compute ownership, and its single active role.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// RequireActor returns the request actor or writes 401 when Identify did not run.
func RequireActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
		return Actor{}, false
	}
	return actor, true
}
