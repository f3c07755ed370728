package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// Role is a fixed identity category. The set is closed.
type Role string

const (
	RoleBuyer           Role = "buyer"
	RoleSeller          Role = "seller"
	RoleDealer          Role = "dealer"
	RoleGarage          Role = "garage"
	RoleModerator       Role = "moderator"
	RoleSeniorModerator Role = "senior_moderator"
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "super_admin"
)

// Roles returns the closed set of roles.
func Roles() []Role {
	return []Role{
		RoleBuyer,
		RoleSeller,
		RoleDealer,
		RoleGarage,
		RoleModerator,
		RoleSeniorModerator,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// IsValid checks if the role belongs to the closed set.
func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleDealer, RoleGarage,
		RoleModerator, RoleSeniorModerator, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole normalises raw input into a Role, rejecting values outside the closed set.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Permission is an opaque capability token.
type Permission string

func (p Permission) String() string { return string(p) }

// PermissionSet is a flat resolved set of permissions.
type PermissionSet map[Permission]struct{}

func newPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Slice returns the permissions sorted by name.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s PermissionSet) clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}
