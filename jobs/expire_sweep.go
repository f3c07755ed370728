package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/motorhub/motorhub/internal/booking"
	jobmetrics "github.com/motorhub/motorhub/internal/jobs"
	"github.com/motorhub/motorhub/internal/shared"
)

const (
	defaultSweepLimit       = 200
	defaultSweepParallelism = 4
)

// BookingExpirer is the part of the booking service the sweep drives.
type BookingExpirer interface {
	ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	Expire(ctx context.Context, id uuid.UUID) (booking.Booking, error)
}

// ExpireSweepJob moves overdue draft and pending bookings to expired.
type ExpireSweepJob struct {
	Bookings    BookingExpirer
	Limit       int
	Parallelism int
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewExpireSweepJob constructs the sweep handler.
func NewExpireSweepJob(bookings BookingExpirer, limit int, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpireSweepJob {
	return &ExpireSweepJob{
		Bookings:    bookings,
		Limit:       limit,
		Parallelism: defaultSweepParallelism,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Expired int
	Skipped int
}

// Handle executes the sweep for a cron tick.
func (j *ExpireSweepJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Bookings == nil {
		return errors.New("expire sweep: dependencies not configured")
	}
	var payload ExpireSweepPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode sweep payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskBookingExpireSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	res, err := j.Sweep(ctx, payload.Limit)
	if err != nil {
		loggerOrDefault(j.Logger, TaskBookingExpireSweep).Error("expire sweep", slog.Any("error", err))
		return err
	}
	loggerOrDefault(j.Logger, TaskBookingExpireSweep).Info("expire sweep finished",
		slog.Int("expired", res.Expired),
		slog.Int("skipped", res.Skipped),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Sweep expires every draft or pending booking scheduled before now. Bookings that
// changed state concurrently are skipped.
func (j *ExpireSweepJob) Sweep(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = j.Limit
	}
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	ids, err := j.Bookings.ListExpirable(ctx, j.now(), limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list expirable bookings: %w", err)
	}

	var expired, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.parallelism())
	for _, id := range ids {
		g.Go(func() error {
			_, err := j.Bookings.Expire(gctx, id)
			switch {
			case err == nil:
				expired.Add(1)
				return nil
			case errors.Is(err, shared.ErrIllegalTransition), errors.Is(err, shared.ErrConcurrentModification), errors.Is(err, shared.ErrNotFound):
				skipped.Add(1)
				return nil
			default:
				return fmt.Errorf("expire booking %s: %w", id, err)
			}
		})
	}
	err = g.Wait()

	res := SweepResult{Expired: int(expired.Load()), Skipped: int(skipped.Load())}
	m := metricsOrDefault(j.Metrics)
	m.AddItems(TaskBookingExpireSweep, "expired", res.Expired)
	m.AddItems(TaskBookingExpireSweep, "skipped", res.Skipped)
	return res, err
}

func (j *ExpireSweepJob) parallelism() int {
	if j.Parallelism > 0 {
		return j.Parallelism
	}
	return defaultSweepParallelism
}

func (j *ExpireSweepJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *ExpireSweepJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
