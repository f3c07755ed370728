package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	// UpdateRole swaps the role only if the stored role still equals from.
	UpdateRole(ctx context.Context, id uuid.UUID, from, to rbac.Role) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	guard  rbac.Guard
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, guard rbac.Guard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: guard, logger: logger}
}

// ListUsers returns one page of users ordered by creation time.
func (s *Service) ListUsers(ctx context.Context, actor rbac.Actor, page, perPage int) (UserPage, error) {
	if err := s.guard.Authorize(actor.Role, rbac.PermManageUsers); err != nil {
		return UserPage{}, err
	}
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.ListUsers(ctx, p.PerPage, p.Offset())
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Users: users, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

// SwitchRole replaces a user's active role and writes a user.role_switched audit entry
// in the same transaction. Earlier audit entries are never touched.
func (s *Service) SwitchRole(ctx context.Context, actor rbac.Actor, userID uuid.UUID, req SwitchRoleRequest) (User, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return User{}, err
	}
	newRole, err := rbac.ParseRole(req.Role)
	if err != nil {
		return User{}, shared.Invalid("role", "is not a known role")
	}
	if err := s.guard.Authorize(actor.Role, rbac.PermManageRoles); err != nil {
		return User{}, err
	}
	// A role the matrix cannot resolve must never be assigned.
	if _, err := s.guard.Matrix().PermissionsFor(newRole); err != nil {
		return User{}, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if user.Role == newRole {
		return User{}, shared.Invalid("role", fmt.Sprintf("user already has role %s", newRole))
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateRole(ctx, user.ID, user.Role, newRole); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   AuditActionRoleSwitched,
			Entity:   "user",
			EntityID: user.ID.String(),
			Meta: map[string]any{
				"from":       string(user.Role),
				"to":         string(newRole),
				"reason":     req.Reason,
				"actor_role": actor.Role.String(),
			},
		})
	})
	if err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "user role switched",
		slog.String("user_id", user.ID.String()),
		slog.String("from", string(user.Role)),
		slog.String("to", string(newRole)),
		slog.String("actor_id", actor.ID.String()),
	)
	user.Role = newRole
	return user, nil
}
