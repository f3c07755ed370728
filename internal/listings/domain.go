// Package listings manages the publish/delete lifecycle of vehicle listings.
package listings

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a listing.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
)

// Action is a lifecycle operation on a listing.
type Action string

const (
	ActionPublish Action = "publish"
	ActionDelete  Action = "delete"
)

var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionPublish: StatusPublished,
		ActionDelete:  StatusDeleted,
	},
	StatusPublished: {
		ActionDelete: StatusDeleted,
	},
}

// Next returns the target status for a from s.
func Next(from Status, a Action) (Status, bool) {
	to, ok := transitions[from][a]
	return to, ok
}

// Listing is a vehicle classified.
type Listing struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Title         string     `json:"title"`
	Status        Status     `json:"status"`
	Package       string     `json:"package"`
	FeaturedUntil *time.Time `json:"featured_until,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
