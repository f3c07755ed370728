package promotion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorhub/motorhub/internal/notify"
	"github.com/motorhub/motorhub/internal/rbac"
	"github.com/motorhub/motorhub/internal/shared"
)

var testNow = time.Date(2026, 6, 10, 9, 30, 0, 0, time.UTC)

type memoryRepo struct {
	mu        sync.Mutex
	requests  map[uuid.UUID]UpgradeRequest
	listings  map[uuid.UUID]Listing
	approvals []shared.ApprovalLog
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		requests: make(map[uuid.UUID]UpgradeRequest),
		listings: make(map[uuid.UUID]Listing),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	requests := make(map[uuid.UUID]UpgradeRequest, len(r.requests))
	for k, v := range r.requests {
		requests[k] = v
	}
	listings := make(map[uuid.UUID]Listing, len(r.listings))
	for k, v := range r.listings {
		listings[k] = v
	}
	approvals := len(r.approvals)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.requests, r.listings, r.approvals = requests, listings, r.approvals[:approvals]
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (UpgradeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return UpgradeRequest{}, shared.ErrNotFound
	}
	return req, nil
}

func (r *memoryRepo) Approvals(ctx context.Context, id uuid.UUID) ([]shared.ApprovalLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.ApprovalLog
	for _, log := range r.approvals {
		if log.RefID == id {
			out = append(out, log)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetListing(ctx context.Context, id uuid.UUID) (Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return Listing{}, shared.ErrNotFound
	}
	return l, nil
}

func (tx *memoryTx) HasPending(ctx context.Context, listingID uuid.UUID) (bool, error) {
	for _, req := range tx.repo.requests {
		if req.ListingID == listingID && req.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) Insert(ctx context.Context, req UpgradeRequest) error {
	tx.repo.requests[req.ID] = req
	return nil
}

func (tx *memoryTx) LockListing(ctx context.Context, id uuid.UUID) (Listing, error) {
	l, ok := tx.repo.listings[id]
	if !ok {
		return Listing{}, shared.ErrNotFound
	}
	return l, nil
}

func (tx *memoryTx) UpdateResolution(ctx context.Context, req UpgradeRequest, expectedVersion int64) error {
	if tx.repo.requests[req.ID].Version != expectedVersion {
		return shared.ErrConcurrentModification
	}
	tx.repo.requests[req.ID] = req
	return nil
}

func (tx *memoryTx) ApplyPackage(ctx context.Context, listingID uuid.UUID, pkg Package) error {
	l := tx.repo.listings[listingID]
	l.Package = pkg
	tx.repo.listings[listingID] = l
	return nil
}

func (tx *memoryTx) ExtendFeature(ctx context.Context, listingID uuid.UUID, until time.Time) error {
	l := tx.repo.listings[listingID]
	l.FeaturedUntil = &until
	tx.repo.listings[listingID] = l
	return nil
}

func (tx *memoryTx) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	tx.repo.approvals = append(tx.repo.approvals, log)
	return nil
}

type recordingDispatcher struct {
	sent []notify.Notification
	err  error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n notify.Notification) error {
	d.sent = append(d.sent, n)
	return d.err
}

type fixture struct {
	repo       *memoryRepo
	dispatcher *recordingDispatcher
	svc        *Service
	seller     rbac.Actor
	moderator  rbac.Actor
	listing    Listing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newMemoryRepo(),
		dispatcher: &recordingDispatcher{},
		seller:     rbac.Actor{ID: uuid.New(), Role: rbac.RoleSeller},
		moderator:  rbac.Actor{ID: uuid.New(), Role: rbac.RoleSeniorModerator},
	}
	f.listing = Listing{ID: uuid.New(), OwnerID: f.seller.ID, Package: PackageBasic}
	f.repo.listings[f.listing.ID] = f.listing
	f.svc = NewService(f.repo, f.repo, rbac.NewGuard(rbac.DefaultMatrix()), f.dispatcher,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options{DispatchTimeout: time.Second, Now: func() time.Time { return testNow }})
	return f
}

func (f *fixture) submitPackage(t *testing.T, pkg Package) UpgradeRequest {
	t.Helper()
	req, err := f.svc.Create(context.Background(), f.seller, CreateUpgradeRequest{ListingID: f.listing.ID, Kind: KindPackage, Package: pkg})
	require.NoError(t, err)
	return req
}

func TestCreatePackageUpgrade(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackagePremium)

	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, PackageBasic, req.CurrentPackage)
	assert.Equal(t, PackagePremium, req.RequestedPackage)
	assert.InDelta(t, 49.0, req.Price, 0.001)
	assert.Equal(t, "EUR", req.Currency)
	assert.Equal(t, f.seller.ID, req.RequestedBy)

	require.Len(t, f.repo.approvals, 1)
	assert.Equal(t, shared.ApprovalSubmit, f.repo.approvals[0].Action)
	assert.Equal(t, req.ID, f.repo.approvals[0].RefID)
}

func TestCreateOwnershipOrAdmin(t *testing.T) {
	f := newFixture(t)
	in := CreateUpgradeRequest{ListingID: f.listing.ID, Kind: KindFeature, FeatureDays: 7}

	otherSeller := rbac.Actor{ID: uuid.New(), Role: rbac.RoleSeller}
	_, err := f.svc.Create(context.Background(), otherSeller, in)
	require.ErrorIs(t, err, shared.ErrAccessDenied)

	buyerOwner := rbac.Actor{ID: f.seller.ID, Role: rbac.RoleBuyer}
	_, err = f.svc.Create(context.Background(), buyerOwner, in)
	require.ErrorIs(t, err, shared.ErrAccessDenied)

	admin := rbac.Actor{ID: uuid.New(), Role: rbac.RoleAdmin}
	req, err := f.svc.Create(context.Background(), admin, in)
	require.NoError(t, err)
	assert.InDelta(t, 17.5, req.Price, 0.001)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]CreateUpgradeRequest{
		"missing package": {ListingID: f.listing.ID, Kind: KindPackage},
		"unknown package": {ListingID: f.listing.ID, Kind: KindPackage, Package: "platinum"},
		"same tier":       {ListingID: f.listing.ID, Kind: KindPackage, Package: PackageBasic},
		"zero days":       {ListingID: f.listing.ID, Kind: KindFeature},
		"too many days":   {ListingID: f.listing.ID, Kind: KindFeature, FeatureDays: 91},
		"unknown kind":    {ListingID: f.listing.ID, Kind: "bump"},
		"no listing":      {Kind: KindFeature, FeatureDays: 3},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.seller, in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateRejectsSecondPendingRequest(t *testing.T) {
	f := newFixture(t)
	f.submitPackage(t, PackageStandard)
	_, err := f.svc.Create(context.Background(), f.seller, CreateUpgradeRequest{ListingID: f.listing.ID, Kind: KindFeature, FeatureDays: 5})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Len(t, f.repo.approvals, 1)
}

func TestCreateOnDeletedListing(t *testing.T) {
	f := newFixture(t)
	l := f.repo.listings[f.listing.ID]
	l.Deleted = true
	f.repo.listings[f.listing.ID] = l
	_, err := f.svc.Create(context.Background(), f.seller, CreateUpgradeRequest{ListingID: f.listing.ID, Kind: KindFeature, FeatureDays: 5})
	require.ErrorIs(t, err, shared.ErrValidation)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "listing_id", verr.Field)
	assert.Empty(t, f.repo.requests)
}

func TestApproveWithoutRemarks(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackagePremium)

	res, err := f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionApprove})
	require.NoError(t, err)
	assert.Nil(t, res.Warning)
	assert.Equal(t, StatusApproved, res.Request.Status)
	require.NotNil(t, res.Request.ResolvedBy)
	assert.Equal(t, f.moderator.ID, *res.Request.ResolvedBy)
	assert.Equal(t, PackagePremium, f.repo.listings[f.listing.ID].Package)

	require.Len(t, f.dispatcher.sent, 1)
	n := f.dispatcher.sent[0]
	assert.Equal(t, notify.KindPlanUpgraded, n.Kind)
	assert.Equal(t, []uuid.UUID{f.seller.ID}, n.Recipients)
	assert.Contains(t, n.Changes, notify.Change{Name: "package", From: "basic", To: "premium"})
	assert.Contains(t, n.Changes, notify.Change{Name: "duration_days", From: "30", To: "60"})
	assert.Contains(t, n.Changes, notify.Change{Name: "refresh_count", From: "0", To: "5"})
	assert.Contains(t, n.Changes, notify.Change{Name: "feature_days", From: "0", To: "7"})

	require.Len(t, f.repo.approvals, 2)
	assert.Equal(t, shared.ApprovalApprove, f.repo.approvals[1].Action)
}

func TestRejectRequiresRemarks(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackageElite)

	_, err := f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionReject})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionReject, Remarks: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)

	remarks := "Photos do not match the vehicle.\nPlease re-upload."
	res, err := f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionReject, Remarks: remarks})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Request.Status)
	assert.Equal(t, PackageBasic, f.repo.listings[f.listing.ID].Package)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, notify.KindUpgradeRejected, f.dispatcher.sent[0].Kind)
	assert.Equal(t, remarks, f.dispatcher.sent[0].Reason)
	assert.Equal(t, shared.ApprovalReject, f.repo.approvals[len(f.repo.approvals)-1].Action)
}

func TestResolvedRequestCannotBeResolvedAgain(t *testing.T) {
	for _, first := range []ResolveRequest{{Decision: DecisionApprove}, {Decision: DecisionReject, Remarks: "no"}} {
		f := newFixture(t)
		req := f.submitPackage(t, PackageStandard)
		first.ID = req.ID
		_, err := f.svc.Resolve(context.Background(), f.moderator, first)
		require.NoError(t, err)

		for _, again := range []ResolveRequest{{ID: req.ID, Decision: DecisionApprove}, {ID: req.ID, Decision: DecisionReject, Remarks: "again"}} {
			_, err := f.svc.Resolve(context.Background(), f.moderator, again)
			require.ErrorIs(t, err, shared.ErrIllegalTransition)
		}
		assert.Len(t, f.dispatcher.sent, 1)
	}
}

func TestResolveRequiresApprovePromotions(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackageStandard)
	for _, role := range []rbac.Role{rbac.RoleSeller, rbac.RoleModerator, rbac.RoleDealer} {
		_, err := f.svc.Resolve(context.Background(), rbac.Actor{ID: uuid.New(), Role: role}, ResolveRequest{ID: req.ID, Decision: DecisionApprove})
		require.ErrorIs(t, err, shared.ErrAccessDenied, role)
	}
	stored, err := f.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestApproveFeatureExtendsActiveWindow(t *testing.T) {
	f := newFixture(t)
	active := testNow.Add(3 * 24 * time.Hour)
	l := f.repo.listings[f.listing.ID]
	l.FeaturedUntil = &active
	f.repo.listings[f.listing.ID] = l

	req, err := f.svc.Create(context.Background(), f.seller, CreateUpgradeRequest{ListingID: f.listing.ID, Kind: KindFeature, FeatureDays: 10})
	require.NoError(t, err)
	_, err = f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionApprove, Remarks: "enjoy"})
	require.NoError(t, err)

	got := f.repo.listings[f.listing.ID].FeaturedUntil
	require.NotNil(t, got)
	assert.True(t, got.Equal(active.Add(10*24*time.Hour)))
	assert.Contains(t, f.dispatcher.sent[0].Changes, notify.Change{Name: "featured_until", From: "2026-06-13", To: "2026-06-23"})
}

// staleListings serves a listing snapshot taken before a concurrent write.
type staleListings map[uuid.UUID]Listing

func (s staleListings) GetListing(ctx context.Context, id uuid.UUID) (Listing, error) {
	l, ok := s[id]
	if !ok {
		return Listing{}, shared.ErrNotFound
	}
	return l, nil
}

func TestApproveReadsListingInsideTransaction(t *testing.T) {
	f := newFixture(t)
	stale := staleListings{f.listing.ID: f.listing}
	f.svc = NewService(f.repo, stale, rbac.NewGuard(rbac.DefaultMatrix()), f.dispatcher,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options{DispatchTimeout: time.Second, Now: func() time.Time { return testNow }})

	req, err := f.svc.Create(context.Background(), f.seller, CreateUpgradeRequest{ListingID: f.listing.ID, Kind: KindFeature, FeatureDays: 7})
	require.NoError(t, err)

	// Another approval featured the listing after the request was filed.
	concurrent := testNow.Add(5 * 24 * time.Hour)
	l := f.repo.listings[f.listing.ID]
	l.FeaturedUntil = &concurrent
	f.repo.listings[f.listing.ID] = l

	_, err = f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionApprove})
	require.NoError(t, err)

	got := f.repo.listings[f.listing.ID].FeaturedUntil
	require.NotNil(t, got)
	assert.True(t, got.Equal(concurrent.Add(7*24*time.Hour)), "got %s", got)
}

func TestApproveOnListingDeletedMeanwhile(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackagePremium)
	l := f.repo.listings[f.listing.ID]
	l.Deleted = true
	f.repo.listings[f.listing.ID] = l

	_, err := f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionApprove})
	require.ErrorIs(t, err, shared.ErrNotFound)
	stored, err := f.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestResolveDispatchFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("smtp relay down")
	req := f.submitPackage(t, PackageStandard)

	res, err := f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionApprove})
	require.NoError(t, err)
	require.NotNil(t, res.Warning)
	stored, err := f.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
}

func TestResolveExpectedVersion(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackageStandard)
	stale := int64(7)
	_, err := f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionApprove, ExpectedVersion: &stale})
	require.ErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackageStandard)

	_, err := f.svc.Get(context.Background(), f.seller, req.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), rbac.Actor{ID: uuid.New(), Role: rbac.RoleModerator}, req.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), rbac.Actor{ID: uuid.New(), Role: rbac.RoleSeller}, req.ID)
	require.ErrorIs(t, err, shared.ErrAccessDenied)
}

func TestCatalogueTiersOrdered(t *testing.T) {
	tiers := DefaultCatalogue().Tiers()
	require.Len(t, tiers, 4)
	for i := 1; i < len(tiers); i++ {
		assert.Less(t, tiers[i-1].Rank, tiers[i].Rank)
	}
	assert.Equal(t, testNow.Add(48*time.Hour), FeaturedUntil(nil, testNow, 2))
}

func TestHistoryFollowsGetVisibility(t *testing.T) {
	f := newFixture(t)
	req := f.submitPackage(t, PackageStandard)
	_, err := f.svc.Resolve(context.Background(), f.moderator, ResolveRequest{ID: req.ID, Decision: DecisionReject, Remarks: "photos missing"})
	require.NoError(t, err)

	logs, err := f.svc.History(context.Background(), f.seller, req.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, shared.ApprovalSubmit, logs[0].Action)
	assert.Equal(t, shared.ApprovalReject, logs[1].Action)
	assert.Equal(t, "photos missing", logs[1].Note)

	_, err = f.svc.History(context.Background(), rbac.Actor{ID: uuid.New(), Role: rbac.RoleSeller}, req.ID)
	require.ErrorIs(t, err, shared.ErrAccessDenied)
}
