package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls   []execCall
	execErr error
	tag     pgconn.CommandTag
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.tag, f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestTransitionErrorMatchesSentinel(t *testing.T) {
	err := IllegalTransition("booking", "completed", "cancel")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "completed", te.From)
	assert.Equal(t, "booking: cannot cancel from completed", err.Error())
}

func TestDenyWrapsAccessDenied(t *testing.T) {
	err := Deny("buyer", "confirm booking")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, err.Error(), "buyer may not confirm booking")
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	type payload struct {
		Currency string `json:"currency" validate:"required,iso4217"`
		Price    float64 `json:"price" validate:"gte=0"`
	}
	err := ValidateStruct(payload{Currency: "EUR", Price: -1})
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "price", ve.Field)
	assert.Equal(t, "failed gte=0", ve.Reason)

	require.NoError(t, ValidateStruct(payload{Currency: "EUR", Price: 10}))
	require.ErrorIs(t, ValidateStruct(payload{Currency: "XYZ"}), ErrValidation)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \t\n"))
	assert.False(t, IsBlank(" no "))
}

func TestAuditLoggerRecord(t *testing.T) {
	db := &fakeDB{}
	logger := NewAuditLogger(nil).WithTx(db)
	actor := uuid.New()
	err := logger.Record(context.Background(), AuditLog{
		ActorID:  actor,
		Action:   "user.role_switched",
		Entity:   "user",
		EntityID: uuid.NewString(),
		Meta:     map[string]any{"from": "buyer", "to": "seller"},
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "INSERT INTO audit_logs")
	assert.Equal(t, actor, db.calls[0].args[0])
	assert.Nil(t, db.calls[0].args[5])

	require.Error(t, logger.Record(context.Background(), AuditLog{Action: "x"}))
	require.Error(t, NewAuditLogger(nil).Record(context.Background(), AuditLog{}))
}

func TestApprovalRecorderRecord(t *testing.T) {
	db := &fakeDB{}
	rec := NewApprovalRecorder(db, nil)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := ApprovalLog{Module: "promotion", RefID: uuid.New(), ActorID: uuid.New(), Action: ApprovalApprove, Note: "ok", At: at}
	require.NoError(t, rec.Record(context.Background(), entry))
	require.Len(t, db.calls, 1)
	assert.Equal(t, "APPROVE", db.calls[0].args[3])

	entry.ActorID = uuid.Nil
	require.EqualError(t, rec.Record(context.Background(), entry), "approval actor required")
	assert.Len(t, db.calls, 1)
}

func TestIdempotencyConflict(t *testing.T) {
	db := &fakeDB{execErr: &pgconn.PgError{Code: "23505"}}
	store := NewIdempotencyStore(db)
	err := store.CheckAndInsert(context.Background(), "k", "notify")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)

	db.execErr = nil
	require.NoError(t, store.CheckAndInsert(context.Background(), "k", "notify"))
	require.Error(t, store.CheckAndInsert(context.Background(), "", "notify"))
}

func TestIdempotencyCleanupReportsRows(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 3")}
	n, err := NewIdempotencyStore(db).Cleanup(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	var nilStore *IdempotencyStore
	n, err = nilStore.Cleanup(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "invalid", Outcome(Invalid("reason", "required")))
	assert.Equal(t, "denied", Outcome(Deny("buyer", "confirm")))
	assert.Equal(t, "illegal", Outcome(IllegalTransition("booking", "expired", "cancel")))
	assert.Equal(t, "conflict", Outcome(ErrConcurrentModification))
	assert.Equal(t, "not_found", Outcome(ErrNotFound))
	assert.Equal(t, "error", Outcome(errors.New("io")))
}

func TestNewPaginationClamps(t *testing.T) {
	p := NewPagination(0, 0, 45)
	assert.Equal(t, Pagination{Page: 1, PerPage: DefaultPerPage, Total: 45, TotalPages: 3}, p)
	assert.Zero(t, p.Offset())

	p = NewPagination(3, 1000, 250)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, 200, p.Offset())
}
