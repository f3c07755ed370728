package rbac

// Grant declares the permissions of a role as an optional base role plus extras.
type Grant struct {
	Role        Role
	Extends     Role
	Permissions []Permission
}

// DefaultGrants is the literal role table of the marketplace.
func DefaultGrants() []Grant {
	return []Grant{
		{
			Role: RoleBuyer,
			Permissions: []Permission{
				PermViewListings,
				PermCreateBookings,
				PermManageOwnBookings,
			},
		},
		{
			Role:    RoleSeller,
			Extends: RoleBuyer,
			Permissions: []Permission{
				PermCreateListings,
				PermManageOwnListings,
				PermRequestListingUpgrade,
			},
		},
		{
			Role:    RoleDealer,
			Extends: RoleSeller,
			Permissions: []Permission{
				PermManageServiceBookings,
				PermManageServices,
			},
		},
		{
			Role:    RoleGarage,
			Extends: RoleBuyer,
			Permissions: []Permission{
				PermManageServiceBookings,
				PermManageServices,
			},
		},
		{
			Role: RoleModerator,
			Permissions: []Permission{
				PermViewListings,
				PermModerateContent,
				PermApproveListings,
				PermViewPromotionRequests,
			},
		},
		{
			Role:    RoleSeniorModerator,
			Extends: RoleModerator,
			Permissions: []Permission{
				PermManageAllListings,
				PermApprovePromotions,
				PermBanUsers,
			},
		},
		{
			Role:    RoleAdmin,
			Extends: RoleSeniorModerator,
			Permissions: []Permission{
				PermManageAllBookings,
				PermManageUsers,
				PermViewAuditLog,
			},
		},
		{
			Role:        RoleSuperAdmin,
			Permissions: Registry(),
		},
	}
}
