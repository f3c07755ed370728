// Package promotion implements listing upgrade requests: package tier upgrades and
// featured placement, resolved by moderators holding approve_promotions.
package promotion

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/notify"
)

// Kind distinguishes package upgrades from feature purchases.
type Kind string

const (
	KindPackage Kind = "package"
	KindFeature Kind = "feature"
)

// Status represents the lifecycle of an upgrade request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether the request is resolved.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Decision is the moderator's resolution.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

var resolutions = map[Status]map[Decision]Status{
	StatusPending: {
		DecisionApprove: StatusApproved,
		DecisionReject:  StatusRejected,
	},
}

// NextStatus returns the target status for d from s. Resolved requests have no exits.
func NextStatus(from Status, d Decision) (Status, bool) {
	to, ok := resolutions[from][d]
	return to, ok
}

// MaxFeatureDays bounds a single feature request.
const MaxFeatureDays = 90

// UpgradeRequest asks for a listing to be promoted.
type UpgradeRequest struct {
	ID               uuid.UUID  `json:"id"`
	ListingID        uuid.UUID  `json:"listing_id"`
	RequestedBy      uuid.UUID  `json:"requested_by"`
	Kind             Kind       `json:"kind"`
	RequestedPackage Package    `json:"requested_package,omitempty"`
	FeatureDays      int        `json:"feature_days,omitempty"`
	CurrentPackage   Package    `json:"current_package"`
	Price            float64    `json:"price"`
	Currency         string     `json:"currency"`
	Status           Status     `json:"status"`
	AdminRemarks     string     `json:"admin_remarks,omitempty"`
	ResolvedBy       *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Listing is the listing state promotion needs.
type Listing struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Package       Package
	FeaturedUntil *time.Time
	Deleted       bool
}

// CreateUpgradeRequest is the createUpgradeRequest payload.
type CreateUpgradeRequest struct {
	ListingID   uuid.UUID `json:"listing_id" validate:"required"`
	Kind        Kind      `json:"kind" validate:"required,oneof=package feature"`
	Package     Package   `json:"package" validate:"omitempty,oneof=basic standard premium elite"`
	FeatureDays int       `json:"feature_days" validate:"gte=0,lte=90"`
}

// ResolveRequest is the resolveUpgradeRequest payload.
type ResolveRequest struct {
	ID              uuid.UUID `json:"-" validate:"required"`
	Decision        Decision  `json:"decision" validate:"required,oneof=approve reject"`
	Remarks         string    `json:"remarks" validate:"max=2000"`
	ExpectedVersion *int64    `json:"expected_version,omitempty"`
}

// ResolveResult carries the resolved request and any dispatch warning.
type ResolveResult struct {
	Request UpgradeRequest  `json:"request"`
	Warning *notify.Warning `json:"warning,omitempty"`
}
