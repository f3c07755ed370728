package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorhub/motorhub/internal/platform/db"
	"github.com/motorhub/motorhub/internal/shared"
)

const requestColumns = `id, listing_id, requested_by, kind, requested_package, feature_days, current_package,
price, currency, status, admin_remarks, resolved_by, resolved_at, version, created_at, updated_at`

// PgRepository persists upgrade requests in PostgreSQL.
type PgRepository struct {
	pool      *pgxpool.Pool
	approvals *shared.ApprovalRecorder
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, approvals *shared.ApprovalRecorder) *PgRepository {
	return &PgRepository{pool: pool, approvals: approvals}
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, approvals: r.approvals.WithTx(tx)})
	})
	return db.MapError(err)
}

// Approvals lists the approval rows recorded for request id.
func (r *PgRepository) Approvals(ctx context.Context, id uuid.UUID) ([]shared.ApprovalLog, error) {
	logs, err := r.approvals.List(ctx, approvalModule, id)
	if err != nil {
		return nil, fmt.Errorf("upgrade request %s approvals: %w", id, err)
	}
	return logs, nil
}

// Get loads an upgrade request by id.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (UpgradeRequest, error) {
	var req UpgradeRequest
	err := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM upgrade_requests WHERE id = $1`, id).Scan(
		&req.ID, &req.ListingID, &req.RequestedBy, &req.Kind, &req.RequestedPackage, &req.FeatureDays, &req.CurrentPackage,
		&req.Price, &req.Currency, &req.Status, &req.AdminRemarks, &req.ResolvedBy, &req.ResolvedAt,
		&req.Version, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return UpgradeRequest{}, fmt.Errorf("upgrade request %s: %w", id, db.MapError(err))
	}
	return req, nil
}

type pgTx struct {
	tx        pgx.Tx
	approvals *shared.ApprovalRecorder
}

func (t *pgTx) HasPending(ctx context.Context, listingID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM upgrade_requests WHERE listing_id = $1 AND status = $2)`,
		listingID, StatusPending).Scan(&exists)
	return exists, err
}

func (t *pgTx) Insert(ctx context.Context, req UpgradeRequest) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO upgrade_requests (`+requestColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		req.ID, req.ListingID, req.RequestedBy, req.Kind, string(req.RequestedPackage), req.FeatureDays, string(req.CurrentPackage),
		req.Price, req.Currency, req.Status, req.AdminRemarks, req.ResolvedBy, req.ResolvedAt,
		req.Version, req.CreatedAt, req.UpdatedAt)
	if db.IsUniqueViolation(err) {
		// upgrade_requests_one_pending partial index
		return &shared.ValidationError{Field: "listing_id", Reason: ErrPendingRequestExists.Error()}
	}
	return err
}

// LockListing reads the listing and holds its row lock until the transaction ends.
func (t *pgTx) LockListing(ctx context.Context, id uuid.UUID) (Listing, error) {
	var l Listing
	err := t.tx.QueryRow(ctx, `SELECT id, owner_id, package, featured_until, deleted_at IS NOT NULL
FROM listings WHERE id = $1 FOR UPDATE`, id).Scan(&l.ID, &l.OwnerID, &l.Package, &l.FeaturedUntil, &l.Deleted)
	if err != nil {
		return Listing{}, fmt.Errorf("listing %s: %w", id, db.MapError(err))
	}
	return l, nil
}

func (t *pgTx) UpdateResolution(ctx context.Context, req UpgradeRequest, expectedVersion int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE upgrade_requests
SET status = $3, admin_remarks = $4, resolved_by = $5, resolved_at = $6, version = $7, updated_at = $8
WHERE id = $1 AND version = $2`,
		req.ID, expectedVersion, req.Status, req.AdminRemarks, req.ResolvedBy, req.ResolvedAt, req.Version, req.UpdatedAt)
	if err != nil {
		return db.MapError(err)
	}
	return db.CheckVersioned(tag, "upgrade request "+req.ID.String())
}

func (t *pgTx) ApplyPackage(ctx context.Context, listingID uuid.UUID, pkg Package) error {
	tag, err := t.tx.Exec(ctx, `UPDATE listings SET package = $2, version = version + 1, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, listingID, string(pkg))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %s: %w", listingID, shared.ErrNotFound)
	}
	return nil
}

func (t *pgTx) ExtendFeature(ctx context.Context, listingID uuid.UUID, until time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE listings SET featured_until = $2, version = version + 1, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, listingID, until)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %s: %w", listingID, shared.ErrNotFound)
	}
	return nil
}

func (t *pgTx) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	return t.approvals.Record(ctx, log)
}
