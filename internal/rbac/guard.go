package rbac

import (
	"strings"

	"github.com/motorhub/motorhub/internal/shared"
)

// Guard answers allow/deny questions against a Matrix. It never inspects
// entities; ownership facts are computed by the caller and passed in as Scopes.
type Guard struct {
	matrix *Matrix
}

// NewGuard constructs a Guard over m.
func NewGuard(m *Matrix) Guard {
	return Guard{matrix: m}
}

// Matrix exposes the underlying read-only matrix.
func (g Guard) Matrix() *Matrix { return g.matrix }

// IsAllowed reports whether role holds perm. A recognized role lacking perm yields
// false with a nil error; an unmapped role yields a *ConfigurationError.
func (g Guard) IsAllowed(role Role, perm Permission) (bool, error) {
	set, err := g.matrix.PermissionsFor(role)
	if err != nil {
		return false, err
	}
	return set.Has(perm), nil
}

// IsAllowedAny reports whether role holds at least one of perms.
func (g Guard) IsAllowedAny(role Role, perms ...Permission) (bool, error) {
	set, err := g.matrix.PermissionsFor(role)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if set.Has(p) {
			return true, nil
		}
	}
	return false, nil
}

// IsAllowedAll reports whether role holds every one of perms.
func (g Guard) IsAllowedAll(role Role, perms ...Permission) (bool, error) {
	set, err := g.matrix.PermissionsFor(role)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if !set.Has(p) {
			return false, nil
		}
	}
	return true, nil
}

// CheckPermission is the external checkPermission(role, permission) contract.
func (g Guard) CheckPermission(role Role, perm Permission) (bool, error) {
	return g.IsAllowed(role, perm)
}

// Authorize returns nil when role holds at least one of perms, an error wrapping
// shared.ErrAccessDenied when it holds none, and the configuration error otherwise.
func (g Guard) Authorize(role Role, perms ...Permission) error {
	ok, err := g.IsAllowedAny(role, perms...)
	if err != nil {
		return err
	}
	if !ok {
		return shared.Deny(string(role), "use "+joinPermissions(perms))
	}
	return nil
}

// Scope pairs an ownership fact with the narrow permission it unlocks.
type Scope struct {
	Owner      bool
	Permission Permission
}

// AllowScoped implements the ownership-OR-admin rule: access is granted when the
// role holds global, or holds the permission of any scope whose Owner flag is set.
func (g Guard) AllowScoped(role Role, global Permission, scopes ...Scope) (bool, error) {
	perms := make([]Permission, 0, len(scopes)+1)
	if global != "" {
		perms = append(perms, global)
	}
	for _, s := range scopes {
		if s.Owner && s.Permission != "" {
			perms = append(perms, s.Permission)
		}
	}
	return g.IsAllowedAny(role, perms...)
}

// OwnerOrAdmin is AllowScoped for the common single-owner case.
func (g Guard) OwnerOrAdmin(role Role, isOwner bool, own, global Permission) (bool, error) {
	return g.AllowScoped(role, global, Scope{Owner: isOwner, Permission: own})
}

func joinPermissions(perms []Permission) string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, string(p))
	}
	return strings.Join(names, "|")
}
