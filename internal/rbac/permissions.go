package rbac

// Listing permissions.
const (
	PermViewListings          Permission = "view_listings"
	PermCreateListings        Permission = "create_listings"
	PermManageOwnListings     Permission = "manage_own_listings"
	PermManageAllListings     Permission = "manage_all_listings"
	PermApproveListings       Permission = "approve_listings"
	PermRequestListingUpgrade Permission = "request_listing_upgrade"
)

// Booking permissions.
const (
	PermCreateBookings        Permission = "create_bookings"
	PermManageOwnBookings     Permission = "manage_own_bookings"
	PermManageServiceBookings Permission = "manage_service_bookings"
	PermManageAllBookings     Permission = "manage_all_bookings"
	PermManageServices        Permission = "manage_services"
)

// Promotion permissions.
const (
	PermApprovePromotions     Permission = "approve_promotions"
	PermViewPromotionRequests Permission = "view_promotion_requests"
)

// Administration permissions.
const (
	PermModerateContent      Permission = "moderate_content"
	PermBanUsers             Permission = "ban_users"
	PermManageUsers          Permission = "manage_users"
	PermManageRoles          Permission = "manage_roles"
	PermViewAuditLog         Permission = "view_audit_log"
	PermManageSystemSettings Permission = "manage_system_settings"
)

// ListingScopes lists all permissions related to listings.
func ListingScopes() []Permission {
	return []Permission{
		PermViewListings,
		PermCreateListings,
		PermManageOwnListings,
		PermManageAllListings,
		PermApproveListings,
		PermRequestListingUpgrade,
	}
}

// BookingScopes lists all permissions related to service bookings.
func BookingScopes() []Permission {
	return []Permission{
		PermCreateBookings,
		PermManageOwnBookings,
		PermManageServiceBookings,
		PermManageAllBookings,
		PermManageServices,
	}
}

// PromotionScopes lists all permissions related to upgrade requests.
func PromotionScopes() []Permission {
	return []Permission{
		PermApprovePromotions,
		PermViewPromotionRequests,
	}
}

// AdminScopes lists platform administration permissions.
func AdminScopes() []Permission {
	return []Permission{
		PermModerateContent,
		PermBanUsers,
		PermManageUsers,
		PermManageRoles,
		PermViewAuditLog,
		PermManageSystemSettings,
	}
}

// Registry returns the closed set of permissions the system recognizes.
func Registry() []Permission {
	all := make([]Permission, 0, 24)
	all = append(all, ListingScopes()...)
	all = append(all, BookingScopes()...)
	all = append(all, PromotionScopes()...)
	all = append(all, AdminScopes()...)
	return all
}

// IsRegistered reports whether p is part of the registry.
func IsRegistered(p Permission) bool {
	for _, known := range Registry() {
		if known == p {
			return true
		}
	}
	return false
}
