package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorhub/motorhub/internal/platform/db"
)

const bookingColumns = `id, service_id, provider_id, customer_id, scheduled_at, status, status_reason,
notes, price, currency, version, created_at, updated_at`

// PgRepository persists bookings in PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	return db.MapError(err)
}

// Get loads a booking by id.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s: %w", id, db.MapError(err))
	}
	return b, nil
}

// ListExpirable returns unresolved bookings scheduled before cutoff, oldest first.
func (r *PgRepository) ListExpirable(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM bookings
WHERE status = ANY($1) AND scheduled_at < $2
ORDER BY scheduled_at ASC LIMIT $3`,
		unresolvedStatusNames(), before, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func unresolvedStatusNames() []string {
	statuses := UnresolvedStatuses()
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return names
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Insert(ctx context.Context, b Booking) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.ServiceID, b.ProviderID, b.CustomerID, b.ScheduledAt, b.Status, b.StatusReason,
		b.Notes, b.Price, b.Currency, b.Version, b.CreatedAt, b.UpdatedAt)
	return err
}

func (t *pgTx) UpdateStatus(ctx context.Context, b Booking, expectedVersion int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bookings
SET status = $3, status_reason = $4, scheduled_at = $5, version = $6, updated_at = $7
WHERE id = $1 AND version = $2`,
		b.ID, expectedVersion, b.Status, b.StatusReason, b.ScheduledAt, b.Version, b.UpdatedAt)
	if err != nil {
		return db.MapError(err)
	}
	return db.CheckVersioned(tag, "booking "+b.ID.String())
}

func (t *pgTx) InsertStatusChange(ctx context.Context, c StatusChange) error {
	var actorID *uuid.UUID
	if c.ActorID != uuid.Nil {
		actorID = &c.ActorID
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO booking_status_history
(booking_id, from_status, to_status, action, actor_id, actor_role, reason, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.BookingID, c.From, c.To, c.Action, actorID, c.ActorRole, c.Reason, c.At)
	return err
}

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.ServiceID, &b.ProviderID, &b.CustomerID, &b.ScheduledAt, &b.Status,
		&b.StatusReason, &b.Notes, &b.Price, &b.Currency, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
