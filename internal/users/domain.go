// Package users manages marketplace accounts and their single active role.
package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
)

// AuditActionRoleSwitched is the audit_logs action written by SwitchRole.
const AuditActionRoleSwitched = "user.role_switched"

// User represents a user account for management.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SwitchRoleRequest is the role switch payload.
type SwitchRoleRequest struct {
	Role   string `json:"role" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// UserPage is one page of ListUsers.
type UserPage struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}
