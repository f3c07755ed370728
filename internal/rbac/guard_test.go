package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorhub/motorhub/internal/shared"
)

func TestIsAllowed(t *testing.T) {
	g := NewGuard(DefaultMatrix())

	ok, err := g.IsAllowed(RoleGarage, PermManageServiceBookings)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsAllowed(RoleBuyer, PermManageServiceBookings)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.IsAllowed(Role("mechanic"), PermViewListings)
	assert.True(t, errors.Is(err, shared.ErrConfiguration))
}

func TestSuperAdminImpliedByEveryGrant(t *testing.T) {
	g := NewGuard(DefaultMatrix())
	for _, role := range Roles() {
		for _, p := range Registry() {
			allowed, err := g.IsAllowed(role, p)
			require.NoError(t, err)
			if !allowed {
				continue
			}
			superAllowed, err := g.IsAllowed(RoleSuperAdmin, p)
			require.NoError(t, err)
			assert.True(t, superAllowed, "%s/%s", role, p)
		}
	}
}

func TestIsAllowedAnyAndAll(t *testing.T) {
	g := NewGuard(DefaultMatrix())

	ok, err := g.IsAllowedAny(RoleBuyer, PermManageServiceBookings, PermManageOwnBookings)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsAllowedAny(RoleBuyer)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.IsAllowedAll(RoleDealer, PermCreateListings, PermManageServiceBookings)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsAllowedAll(RoleGarage, PermCreateListings, PermManageServiceBookings)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.IsAllowedAny(Role(""), PermViewListings)
	assert.True(t, errors.Is(err, shared.ErrConfiguration))
}

func TestAuthorize(t *testing.T) {
	g := NewGuard(DefaultMatrix())

	require.NoError(t, g.Authorize(RoleAdmin, PermApprovePromotions))

	err := g.Authorize(RoleSeller, PermApprovePromotions)
	require.ErrorIs(t, err, shared.ErrAccessDenied)
	assert.Contains(t, err.Error(), "approve_promotions")
}

func TestOwnerOrAdmin(t *testing.T) {
	g := NewGuard(DefaultMatrix())

	ok, err := g.OwnerOrAdmin(RoleSeller, true, PermManageOwnListings, PermManageAllListings)
	require.NoError(t, err)
	assert.True(t, ok, "owner with own-scoped permission")

	ok, err = g.OwnerOrAdmin(RoleSeller, false, PermManageOwnListings, PermManageAllListings)
	require.NoError(t, err)
	assert.False(t, ok, "non-owner without global permission")

	ok, err = g.OwnerOrAdmin(RoleSeniorModerator, false, PermManageOwnListings, PermManageAllListings)
	require.NoError(t, err)
	assert.True(t, ok, "global permission ignores ownership")

	ok, err = g.OwnerOrAdmin(RoleBuyer, true, PermManageOwnListings, PermManageAllListings)
	require.NoError(t, err)
	assert.False(t, ok, "owner lacking own-scoped permission")
}

func TestAllowScopedMultipleOwners(t *testing.T) {
	g := NewGuard(DefaultMatrix())

	ok, err := g.AllowScoped(RoleGarage, PermManageAllBookings,
		Scope{Owner: false, Permission: PermManageOwnBookings},
		Scope{Owner: true, Permission: PermManageServiceBookings},
	)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.AllowScoped(RoleGarage, PermManageAllBookings,
		Scope{Owner: false, Permission: PermManageServiceBookings},
	)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuardWithoutMatrix(t *testing.T) {
	var g Guard
	_, err := g.IsAllowed(RoleBuyer, PermViewListings)
	assert.True(t, errors.Is(err, shared.ErrConfiguration))
}
