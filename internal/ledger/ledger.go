// Package ledger is the single authority for credit balance mutation.
//
// Classifications are charged in two phases: Reserve deducts the credit up
// front, then Commit records the usage or Release refunds it. A reservation
// that is never settled expires and is refunded by the Sweeper.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/moodmeter/moodmeter/internal/metrics"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository"
)

// ErrInvalidAmount is returned for non-positive debit amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// Store persists balances and reservations.
// Every method must be atomic with respect to the account balance.
type Store interface {
	DebitCredits(ctx context.Context, accountID string, amount int) (int, error)
	ReserveCredits(ctx context.Context, res *model.Reservation) (int, error)
	CommitReservation(ctx context.Context, reservationID string, usage *model.UsageRecord) (int, error)
	ReleaseReservation(ctx context.Context, reservationID string) (int, error)
	ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
}

// Ledger debits, reserves and refunds credits.
type Ledger struct {
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// New creates a Ledger. reservationTTL bounds how long a reserved credit may
// stay unsettled before the sweeper refunds it.
func New(store Store, reservationTTL time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Ledger {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   store,
		ttl:     reservationTTL,
		logger:  logger.With("component", "ledger"),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Debit subtracts amount from the balance and returns what remains. It is
// the direct-debit entry point for charges that need no reservation; the
// analysis path uses Reserve and Commit instead. Returns
// repository.ErrInsufficientCredits without mutation when the balance does
// not cover amount.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	remaining, err := l.store.DebitCredits(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}

	l.metrics.IncCreditsDebited(amount)
	return remaining, nil
}

// Reserve deducts amount and returns a pending reservation together with the
// remaining balance.
func (l *Ledger) Reserve(ctx context.Context, accountID string, amount int) (*model.Reservation, int, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}

	now := l.now()
	res := &model.Reservation{
		ID:        ulid.Make().String(),
		AccountID: accountID,
		Amount:    amount,
		Status:    model.ReservationPending,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}

	remaining, err := l.store.ReserveCredits(ctx, res)
	if err != nil {
		return nil, 0, err
	}

	return res, remaining, nil
}

// Commit settles res and appends a usage record for endpoint.
// Returns the balance after commit.
func (l *Ledger) Commit(ctx context.Context, res *model.Reservation, endpoint model.Endpoint) (int, error) {
	if !endpoint.IsValid() {
		return 0, fmt.Errorf("unknown endpoint %q", endpoint)
	}

	usage := &model.UsageRecord{
		ID:        ulid.Make().String(),
		AccountID: res.AccountID,
		Endpoint:  endpoint,
		CreatedAt: l.now(),
	}

	remaining, err := l.store.CommitReservation(ctx, res.ID, usage)
	if err != nil {
		return 0, err
	}

	res.Status = model.ReservationCommitted
	settled := usage.CreatedAt
	res.SettledAt = &settled

	l.metrics.IncCreditsDebited(res.Amount)
	return remaining, nil
}

// Release refunds res. Returns the balance after the refund.
func (l *Ledger) Release(ctx context.Context, res *model.Reservation) (int, error) {
	remaining, err := l.store.ReleaseReservation(ctx, res.ID)
	if err != nil {
		return 0, err
	}

	res.Status = model.ReservationReleased
	settled := l.now()
	res.SettledAt = &settled

	l.metrics.IncReservationsReleased(1)
	return remaining, nil
}

// ReleaseExpired refunds up to limit pending reservations whose deadline has
// passed. Reservations settled concurrently are skipped.
// Returns the number released.
func (l *Ledger) ReleaseExpired(ctx context.Context, limit int) (int, error) {
	expired, err := l.store.ListExpiredReservations(ctx, l.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list expired reservations: %w", err)
	}

	released := 0
	for _, res := range expired {
		if _, err := l.store.ReleaseReservation(ctx, res.ID); err != nil {
			if errors.Is(err, repository.ErrReservationSettled) {
				continue
			}
			return released, fmt.Errorf("release reservation %s: %w", res.ID, err)
		}
		released++
		l.logger.Info("expired reservation released",
			"reservation_id", res.ID,
			"account_id", res.AccountID,
			"amount", res.Amount,
		)
	}

	l.metrics.IncReservationsReleased(released)
	return released, nil
}
