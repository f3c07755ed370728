package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/motorhub/motorhub/internal/notify"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
)

const (
	entityName     = "upgrade_request"
	approvalModule = "promotion"
)

// ErrPendingRequestExists is returned when a listing already has an unresolved request.
var ErrPendingRequestExists = errors.New("listing already has a pending upgrade request")

// ListingReader loads the listing a request targets.
type ListingReader interface {
	GetListing(ctx context.Context, id uuid.UUID) (Listing, error)
}

// Repository describes persistence operations used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (UpgradeRequest, error)
	Approvals(ctx context.Context, id uuid.UUID) ([]shared.ApprovalLog, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	HasPending(ctx context.Context, listingID uuid.UUID) (bool, error)
	Insert(ctx context.Context, req UpgradeRequest) error
	// LockListing reads the listing under a row lock held until commit.
	LockListing(ctx context.Context, id uuid.UUID) (Listing, error)
	// UpdateResolution writes req only if the stored version equals expectedVersion.
	UpdateResolution(ctx context.Context, req UpgradeRequest, expectedVersion int64) error
	ApplyPackage(ctx context.Context, listingID uuid.UUID, pkg Package) error
	ExtendFeature(ctx context.Context, listingID uuid.UUID, until time.Time) error
	RecordApproval(ctx context.Context, log shared.ApprovalLog) error
}

// Options tunes Service behaviour.
type Options struct {
	Catalogue       Catalogue
	DispatchTimeout time.Duration
	Observer        shared.TransitionObserver
	Now             func() time.Time
}

// Service orchestrates upgrade requests.
type Service struct {
	repo       Repository
	listings   ListingReader
	guard      rbac.Guard
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	catalogue  Catalogue
	timeout    time.Duration
	observer   shared.TransitionObserver
	now        func() time.Time
}

// NewService constructs the promotion service.
func NewService(repo Repository, listings ListingReader, guard rbac.Guard, dispatcher notify.Dispatcher, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Catalogue.tiers == nil {
		opts.Catalogue = DefaultCatalogue()
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = notify.DefaultTimeout
	}
	if opts.Observer == nil {
		opts.Observer = shared.NopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:       repo,
		listings:   listings,
		guard:      guard,
		dispatcher: dispatcher,
		logger:     logger,
		catalogue:  opts.Catalogue,
		timeout:    opts.DispatchTimeout,
		observer:   opts.Observer,
		now:        opts.Now,
	}
}

// Catalogue exposes the tiers the service quotes from.
func (s *Service) Catalogue() Catalogue { return s.catalogue }

// Create files an upgrade request for a listing.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateUpgradeRequest) (req UpgradeRequest, err error) {
	defer func() {
		s.observer.ObserveTransition(entityName, "submit", shared.Outcome(err))
	}()

	if err := s.validateCreate(in); err != nil {
		return UpgradeRequest{}, err
	}
	listing, err := s.listings.GetListing(ctx, in.ListingID)
	if err != nil {
		return UpgradeRequest{}, err
	}
	if listing.Deleted {
		return UpgradeRequest{}, shared.Invalid("listing_id", "is deleted")
	}
	ok, err := s.guard.OwnerOrAdmin(actor.Role, listing.OwnerID == actor.ID, rbac.PermRequestListingUpgrade, rbac.PermManageAllListings)
	if err != nil {
		return UpgradeRequest{}, err
	}
	if !ok {
		return UpgradeRequest{}, shared.Deny(actor.Role.String(), "request upgrade for listing "+listing.ID.String())
	}

	now := s.now().UTC()
	req = UpgradeRequest{
		ID:             uuid.New(),
		ListingID:      listing.ID,
		RequestedBy:    actor.ID,
		Kind:           in.Kind,
		CurrentPackage: listing.Package,
		Currency:       s.catalogue.Currency(),
		Status:         StatusPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	switch in.Kind {
	case KindPackage:
		target, _ := s.catalogue.Tier(in.Package)
		current, known := s.catalogue.Tier(listing.Package)
		if known && target.Rank <= current.Rank {
			return UpgradeRequest{}, shared.Invalid("package", fmt.Sprintf("must rank above current package %s", listing.Package))
		}
		req.RequestedPackage = target.Package
		req.Price = target.Price
	case KindFeature:
		req.FeatureDays = in.FeatureDays
		req.Price = s.catalogue.FeaturePrice(in.FeatureDays)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pending, err := tx.HasPending(ctx, listing.ID)
		if err != nil {
			return err
		}
		if pending {
			return &shared.ValidationError{Field: "listing_id", Reason: ErrPendingRequestExists.Error()}
		}
		if err := tx.Insert(ctx, req); err != nil {
			return err
		}
		return tx.RecordApproval(ctx, shared.ApprovalLog{
			Module:  approvalModule,
			RefID:   req.ID,
			ActorID: actor.ID,
			Action:  shared.ApprovalSubmit,
			Note:    describe(req),
			At:      now,
		})
	})
	if err != nil {
		return UpgradeRequest{}, err
	}
	s.logger.InfoContext(ctx, "upgrade request submitted",
		slog.String("request_id", req.ID.String()),
		slog.String("listing_id", req.ListingID.String()),
		slog.String("kind", string(req.Kind)),
	)
	return req, nil
}

// Get returns a request visible to its requester or to roles holding view_promotion_requests.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (UpgradeRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return UpgradeRequest{}, err
	}
	ok, err := s.guard.OwnerOrAdmin(actor.Role, req.RequestedBy == actor.ID, rbac.PermRequestListingUpgrade, rbac.PermViewPromotionRequests)
	if err != nil {
		return UpgradeRequest{}, err
	}
	if !ok {
		return UpgradeRequest{}, shared.Deny(actor.Role.String(), "view upgrade request")
	}
	return req, nil
}

// History returns the approval trail of a request, oldest first. Visibility follows Get.
func (s *Service) History(ctx context.Context, actor rbac.Actor, id uuid.UUID) ([]shared.ApprovalLog, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.Approvals(ctx, id)
}

// Resolve approves or rejects a pending request. Checks run in a fixed order: input
// validation, load, expected version, legality, authorization, conditional write.
func (s *Service) Resolve(ctx context.Context, actor rbac.Actor, in ResolveRequest) (result ResolveResult, err error) {
	defer func() {
		s.observer.ObserveTransition(entityName, string(in.Decision), shared.Outcome(err))
	}()

	if err := shared.ValidateStruct(in); err != nil {
		return ResolveResult{}, err
	}
	if in.Decision == DecisionReject && shared.IsBlank(in.Remarks) {
		return ResolveResult{}, shared.Invalid("remarks", "are required to reject")
	}
	current, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return ResolveResult{}, err
	}
	if in.ExpectedVersion != nil && *in.ExpectedVersion != current.Version {
		return ResolveResult{}, fmt.Errorf("%w: upgrade request %s is at version %d", shared.ErrConcurrentModification, current.ID, current.Version)
	}
	to, ok := NextStatus(current.Status, in.Decision)
	if !ok {
		return ResolveResult{}, shared.IllegalTransition(entityName, string(current.Status), string(in.Decision))
	}
	if err := s.guard.Authorize(actor.Role, rbac.PermApprovePromotions); err != nil {
		return ResolveResult{}, err
	}

	now := s.now().UTC()
	actorID := actor.ID
	updated := current
	updated.Status = to
	updated.AdminRemarks = in.Remarks
	updated.ResolvedBy = &actorID
	updated.ResolvedAt = &now
	updated.Version = current.Version + 1
	updated.UpdatedAt = now

	var gain benefit
	action := shared.ApprovalReject
	if to == StatusApproved {
		action = shared.ApprovalApprove
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateResolution(ctx, updated, current.Version); err != nil {
			return err
		}
		if to == StatusApproved {
			listing, err := tx.LockListing(ctx, updated.ListingID)
			if err != nil {
				return err
			}
			if gain, err = s.benefits(listing, updated, now); err != nil {
				return err
			}
			if err := applyBenefit(ctx, tx, updated, gain); err != nil {
				return err
			}
		}
		return tx.RecordApproval(ctx, shared.ApprovalLog{
			Module:  approvalModule,
			RefID:   updated.ID,
			ActorID: actor.ID,
			Action:  action,
			Note:    in.Remarks,
			At:      now,
		})
	})
	if err != nil {
		return ResolveResult{}, err
	}

	n := notify.Notification{
		EntityID:   updated.ID,
		Recipients: []uuid.UUID{updated.RequestedBy},
		OldStatus:  string(current.Status),
		NewStatus:  string(to),
		ActorRole:  actor.Role.String(),
		Reason:     in.Remarks,
		Amount:     updated.Price,
		Currency:   updated.Currency,
		OccurredAt: now,
	}
	if to == StatusApproved {
		n.Kind = notify.KindPlanUpgraded
		n.Changes = gain.changes
	} else {
		n.Kind = notify.KindUpgradeRejected
	}
	result = ResolveResult{Request: updated}
	result.Warning = notify.Post(ctx, s.dispatcher, s.timeout, n, s.logger)
	if result.Warning != nil {
		s.observer.ObserveDispatchWarning(entityName)
	}
	s.logger.InfoContext(ctx, "upgrade request resolved",
		slog.String("request_id", updated.ID.String()),
		slog.String("status", string(to)),
		slog.String("actor_role", actor.Role.String()),
	)
	return result, nil
}

func (s *Service) validateCreate(in CreateUpgradeRequest) error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	switch in.Kind {
	case KindPackage:
		if in.Package == "" {
			return shared.Invalid("package", "is required for package upgrades")
		}
		if _, ok := s.catalogue.Tier(in.Package); !ok {
			return shared.Invalid("package", "is not offered")
		}
	case KindFeature:
		if in.FeatureDays < 1 || in.FeatureDays > MaxFeatureDays {
			return shared.Invalid("feature_days", "must be between 1 and "+strconv.Itoa(MaxFeatureDays))
		}
	}
	return nil
}

type benefit struct {
	changes       []notify.Change
	featuredUntil time.Time
}

// benefits computes the delta the requester gains from the listing as locked in the
// resolving transaction.
func (s *Service) benefits(listing Listing, req UpgradeRequest, now time.Time) (benefit, error) {
	if listing.Deleted {
		return benefit{}, fmt.Errorf("listing %s: %w", listing.ID, shared.ErrNotFound)
	}
	if req.Kind == KindFeature {
		until := FeaturedUntil(listing.FeaturedUntil, now, req.FeatureDays)
		return benefit{changes: FeatureDelta(listing.FeaturedUntil, until, req.FeatureDays), featuredUntil: until}, nil
	}
	from, err := s.catalogue.mustTier(listing.Package)
	if err != nil {
		return benefit{}, err
	}
	to, err := s.catalogue.mustTier(req.RequestedPackage)
	if err != nil {
		return benefit{}, err
	}
	if to.Rank <= from.Rank {
		return benefit{}, shared.IllegalTransition("listing", string(listing.Package), "upgrade to "+string(to.Package))
	}
	return benefit{changes: PackageDelta(from, to)}, nil
}

func applyBenefit(ctx context.Context, tx TxRepository, req UpgradeRequest, gain benefit) error {
	if req.Kind == KindFeature {
		return tx.ExtendFeature(ctx, req.ListingID, gain.featuredUntil)
	}
	return tx.ApplyPackage(ctx, req.ListingID, req.RequestedPackage)
}

func describe(req UpgradeRequest) string {
	if req.Kind == KindFeature {
		return fmt.Sprintf("feature listing for %d days", req.FeatureDays)
	}
	return fmt.Sprintf("upgrade %s to %s", req.CurrentPackage, req.RequestedPackage)
}
