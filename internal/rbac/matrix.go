package rbac

import (
	"fmt"

	"github.com/samber/lo"
)

// Matrix is the immutable role to permission mapping. Every inherited grant is
// flattened when the matrix is built; lookups never re-evaluate the declarations.
type Matrix struct {
	declared map[Role]Grant
	resolved map[Role]PermissionSet
}

// NewMatrix validates the declarations and resolves them into flat sets.
func NewMatrix(grants ...Grant) (*Matrix, error) {
	declared := make(map[Role]Grant, len(grants))
	for _, g := range grants {
		if !g.Role.IsValid() {
			return nil, &ConfigurationError{Role: g.Role, Reason: "grant declared for unknown role"}
		}
		if _, dup := declared[g.Role]; dup {
			return nil, &ConfigurationError{Role: g.Role, Reason: "duplicate grant"}
		}
		if g.Extends != "" && !g.Extends.IsValid() {
			return nil, &ConfigurationError{Role: g.Role, Reason: fmt.Sprintf("extends unknown role %q", g.Extends)}
		}
		unknown := lo.Filter(g.Permissions, func(p Permission, _ int) bool { return !IsRegistered(p) })
		if len(unknown) > 0 {
			return nil, &ConfigurationError{Role: g.Role, Reason: fmt.Sprintf("unregistered permission %q", unknown[0])}
		}
		declared[g.Role] = Grant{
			Role:        g.Role,
			Extends:     g.Extends,
			Permissions: append([]Permission(nil), g.Permissions...),
		}
	}
	for _, role := range Roles() {
		if _, ok := declared[role]; !ok {
			return nil, &ConfigurationError{Role: role, Reason: "no grant declared"}
		}
	}

	resolved := make(map[Role]PermissionSet, len(declared))
	for _, role := range Roles() {
		if _, err := resolve(role, declared, resolved, map[Role]bool{}); err != nil {
			return nil, err
		}
	}

	missing, _ := lo.Difference(Registry(), resolved[RoleSuperAdmin].Slice())
	if len(missing) > 0 {
		return nil, &ConfigurationError{Role: RoleSuperAdmin, Reason: fmt.Sprintf("missing permission %q", missing[0])}
	}

	return &Matrix{declared: declared, resolved: resolved}, nil
}

// MustNewMatrix is NewMatrix for literal tables checked at process start.
func MustNewMatrix(grants ...Grant) *Matrix {
	m, err := NewMatrix(grants...)
	if err != nil {
		panic(err)
	}
	return m
}

// DefaultMatrix builds the matrix from DefaultGrants.
func DefaultMatrix() *Matrix {
	return MustNewMatrix(DefaultGrants()...)
}

func resolve(role Role, declared map[Role]Grant, resolved map[Role]PermissionSet, visiting map[Role]bool) (PermissionSet, error) {
	if set, ok := resolved[role]; ok {
		return set, nil
	}
	if visiting[role] {
		return nil, &ConfigurationError{Role: role, Reason: "inheritance cycle"}
	}
	visiting[role] = true
	defer delete(visiting, role)

	g := declared[role]
	perms := g.Permissions
	if g.Extends != "" {
		base, err := resolve(g.Extends, declared, resolved, visiting)
		if err != nil {
			return nil, err
		}
		perms = lo.Union(base.Slice(), g.Permissions)
	}
	set := newPermissionSet(lo.Uniq(perms)...)
	resolved[role] = set
	return set, nil
}

// PermissionsFor returns a copy of the resolved set for role.
func (m *Matrix) PermissionsFor(role Role) (PermissionSet, error) {
	if m == nil {
		return nil, &ConfigurationError{Role: role, Reason: "matrix not initialised"}
	}
	set, ok := m.resolved[role]
	if !ok {
		return nil, &ConfigurationError{Role: role, Reason: "no grant mapped"}
	}
	return set.clone(), nil
}

// Declared returns the grant as written, before flattening.
func (m *Matrix) Declared(role Role) (Grant, error) {
	if m == nil {
		return Grant{}, &ConfigurationError{Role: role, Reason: "matrix not initialised"}
	}
	g, ok := m.declared[role]
	if !ok {
		return Grant{}, &ConfigurationError{Role: role, Reason: "no grant mapped"}
	}
	g.Permissions = append([]Permission(nil), g.Permissions...)
	return g, nil
}

// Roles lists the mapped roles in declaration order of the closed set.
func (m *Matrix) Roles() []Role {
	if m == nil {
		return nil
	}
	return lo.Filter(Roles(), func(r Role, _ int) bool {
		_, ok := m.resolved[r]
		return ok
	})
}
