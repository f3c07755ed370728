package listings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorhub/motorhub/internal/platform/db"
)

// PgRepository persists listings in PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Get loads a listing by id.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Listing, error) {
	var l Listing
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, title, status, package, featured_until, published_at,
version, created_at, updated_at FROM listings WHERE id = $1`, id).Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Status, &l.Package, &l.FeaturedUntil, &l.PublishedAt,
		&l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Listing{}, fmt.Errorf("listing %s: %w", id, db.MapError(err))
	}
	return l, nil
}

// UpdateStatus applies a lifecycle change guarded by the version column.
func (r *PgRepository) UpdateStatus(ctx context.Context, l Listing, expectedVersion int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE listings
SET status = $3, published_at = $4, version = $5, updated_at = $6,
    deleted_at = CASE WHEN $3 = 'deleted' THEN $6 ELSE deleted_at END
WHERE id = $1 AND version = $2`,
		l.ID, expectedVersion, l.Status, l.PublishedAt, l.Version, l.UpdatedAt)
	if err != nil {
		return db.MapError(err)
	}
	return db.CheckVersioned(tag, "listing "+l.ID.String())
}
