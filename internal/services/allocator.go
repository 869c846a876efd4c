package services

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/campuskit/registry/internal/metrics"
	"github.com/campuskit/registry/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
)

// TxRunner runs a function inside a single database transaction.
// Implemented by database.DB.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// PillarRepository defines the interface for partition tracker access
type PillarRepository interface {
	Lock(ctx context.Context, tx pgx.Tx, base int) (*models.PillarTracker, error)
	SetLastIssued(ctx context.Context, tx pgx.Tx, base, lastIssued int) error
}

// allocateAttempts bounds the redraw loop. Ninety partitions of 9999 numbers
// each make exhausting the budget effectively unreachable; hitting it is an
// operational incident, not a user error.
const allocateAttempts = 100

var errPartitionFull = errors.New("partition exhausted")

// PillarAllocator issues unique account code numbers. A random partition is
// drawn per attempt so concurrent registrations spread across independent
// lock rows instead of serializing on one global counter. Each attempt is its
// own short transaction: the row lock covers one read-increment-write, never
// the caller's whole operation, and a full partition is released immediately
// so the next draw can land elsewhere.
type PillarAllocator struct {
	db       TxRunner
	trackers PillarRepository
	logger   *slog.Logger
}

// NewPillarAllocator creates a new PillarAllocator
func NewPillarAllocator(db TxRunner, trackers PillarRepository, logger *slog.Logger) *PillarAllocator {
	return &PillarAllocator{
		db:       db,
		trackers: trackers,
		logger:   logger,
	}
}

// Allocate draws a partition and issues the next number from its sequence.
// Returns ErrCapacityExhausted once the retry budget is spent.
func (a *PillarAllocator) Allocate(ctx context.Context) (int, error) {
	var issued int

	backoff := retry.WithMaxRetries(allocateAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		metrics.AllocatorDraws.Inc()

		base, err := drawPartitionBase()
		if err != nil {
			return err
		}

		n, err := a.allocateFrom(ctx, base)
		if errors.Is(err, errPartitionFull) {
			metrics.AllocatorRedraws.Inc()
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		issued = n
		return nil
	})
	if err != nil {
		if errors.Is(err, errPartitionFull) {
			metrics.AllocatorExhausted.Inc()
			a.logger.Error("code space exhausted", slog.Int("attempts", allocateAttempts))
			return 0, models.ErrCapacityExhausted
		}
		a.logger.Error("allocation failed", slog.Any("error", err))
		return 0, err
	}

	return issued, nil
}

// allocateFrom locks one partition tracker and advances its sequence.
// The lock is released at commit, or at rollback when the partition is full.
func (a *PillarAllocator) allocateFrom(ctx context.Context, base int) (int, error) {
	var issued int

	err := a.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tracker, err := a.trackers.Lock(ctx, tx, base)
		if err != nil {
			return err
		}

		if tracker.Exhausted() {
			return errPartitionFull
		}

		issued = tracker.LastIssued + 1
		return a.trackers.SetLastIssued(ctx, tx, base, issued)
	})
	if err != nil {
		return 0, err
	}

	return issued, nil
}

// drawPartitionBase picks a partition by two random digits: a main digit 1-9
// and a sub digit 0-9. The base is those digits followed by four zeros.
func drawPartitionBase() (int, error) {
	main, err := randDigit(1, 9)
	if err != nil {
		return 0, err
	}

	sub, err := randDigit(0, 9)
	if err != nil {
		return 0, err
	}

	return main*100000 + sub*10000, nil
}

func randDigit(min, max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}
	return min + int(n.Int64()), nil
}
