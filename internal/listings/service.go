package listings

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/promotion"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
)

const entityName = "listing"

// Repository describes persistence operations used by Service.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Listing, error)
	// UpdateStatus writes l only if the stored version equals expectedVersion.
	UpdateStatus(ctx context.Context, l Listing, expectedVersion int64) error
}

// Service orchestrates listing lifecycle operations.
type Service struct {
	repo     Repository
	guard    rbac.Guard
	logger   *slog.Logger
	observer shared.TransitionObserver
	now      func() time.Time
}

// NewService constructs the listings service.
func NewService(repo Repository, guard rbac.Guard, logger *slog.Logger, observer shared.TransitionObserver) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = shared.NopObserver{}
	}
	return &Service{repo: repo, guard: guard, logger: logger, observer: observer, now: time.Now}
}

// Get returns a listing. Deleted listings are hidden from everyone but global managers.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Listing, error) {
	if err := s.guard.Authorize(actor.Role, rbac.PermViewListings, rbac.PermManageAllListings); err != nil {
		return Listing{}, err
	}
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	if l.Status == StatusDeleted {
		ok, err := s.guard.IsAllowed(actor.Role, rbac.PermManageAllListings)
		if err != nil {
			return Listing{}, err
		}
		if !ok {
			return Listing{}, shared.ErrNotFound
		}
	}
	return l, nil
}

// Publish makes a draft listing visible.
func (s *Service) Publish(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Listing, error) {
	return s.transition(ctx, actor, id, ActionPublish)
}

// Delete soft-deletes a listing.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) (Listing, error) {
	return s.transition(ctx, actor, id, ActionDelete)
}

// GetListing implements promotion.ListingReader.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (promotion.Listing, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return promotion.Listing{}, err
	}
	return promotion.Listing{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		Package:       promotion.Package(l.Package),
		FeaturedUntil: l.FeaturedUntil,
		Deleted:       l.Status == StatusDeleted,
	}, nil
}

func (s *Service) transition(ctx context.Context, actor rbac.Actor, id uuid.UUID, action Action) (l Listing, err error) {
	defer func() {
		s.observer.ObserveTransition(entityName, string(action), shared.Outcome(err))
	}()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	to, ok := Next(current.Status, action)
	if !ok {
		return Listing{}, shared.IllegalTransition(entityName, string(current.Status), string(action))
	}
	allowed, err := s.guard.OwnerOrAdmin(actor.Role, current.OwnerID == actor.ID, rbac.PermManageOwnListings, rbac.PermManageAllListings)
	if err != nil {
		return Listing{}, err
	}
	if !allowed {
		return Listing{}, shared.Deny(actor.Role.String(), string(action)+" listing "+id.String())
	}

	now := s.now().UTC()
	updated := current
	updated.Status = to
	updated.Version = current.Version + 1
	updated.UpdatedAt = now
	if to == StatusPublished {
		updated.PublishedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, updated, current.Version); err != nil {
		return Listing{}, err
	}
	s.logger.InfoContext(ctx, "listing "+string(to),
		slog.String("listing_id", id.String()),
		slog.String("actor_role", actor.Role.String()),
		slog.Bool("owner", current.OwnerID == actor.ID),
	)
	return updated, nil
}
