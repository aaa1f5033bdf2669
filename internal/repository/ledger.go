package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/moodmeter/moodmeter/internal/model"
)

// DebitCredits atomically subtracts amount from an account balance.
// The balance is only touched when it covers amount, so concurrent debits
// can never drive it below zero. Returns the remaining balance.
func (r *Repository) DebitCredits(ctx context.Context, accountID string, amount int) (int, error) {
	return debit(ctx, r.pool, accountID, amount)
}

// ReserveCredits debits res.Amount and records res as pending, in one transaction.
// Returns the remaining balance.
func (r *Repository) ReserveCredits(ctx context.Context, res *model.Reservation) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	remaining, err := debit(ctx, tx, res.AccountID, res.Amount)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credit_reservations (id, account_id, amount, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, res.ID, res.AccountID, res.Amount, string(model.ReservationPending), res.ExpiresAt, res.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit reservation: %w", err)
	}

	res.Status = model.ReservationPending
	return remaining, nil
}

// CommitReservation settles a pending reservation and appends usage, in one
// transaction. usage.AccountID and usage.CreditsUsed are taken from the
// reservation. Returns the account balance after commit.
func (r *Repository) CommitReservation(ctx context.Context, reservationID string, usage *model.UsageRecord) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	accountID, amount, err := settle(ctx, tx, reservationID, model.ReservationCommitted, usage.CreatedAt)
	if err != nil {
		return 0, err
	}

	usage.AccountID = accountID
	usage.CreditsUsed = amount
	if err := insertUsage(ctx, tx, usage); err != nil {
		return 0, err
	}

	var credits int
	if err := tx.QueryRow(ctx, "SELECT credits FROM accounts WHERE id = $1", accountID).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit usage: %w", err)
	}

	return credits, nil
}

// ReleaseReservation settles a pending reservation and refunds its amount,
// in one transaction. Returns the account balance after the refund.
func (r *Repository) ReleaseReservation(ctx context.Context, reservationID string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	accountID, amount, err := settle(ctx, tx, reservationID, model.ReservationReleased, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	var credits int
	err = tx.QueryRow(ctx,
		"UPDATE accounts SET credits = credits + $2 WHERE id = $1 RETURNING credits",
		accountID, amount,
	).Scan(&credits)
	if err != nil {
		return 0, fmt.Errorf("failed to refund credits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit release: %w", err)
	}

	return credits, nil
}

// ListExpiredReservations returns pending reservations whose deadline is at
// or before now, oldest first.
func (r *Repository) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	query := `
		SELECT id, account_id, amount, status, expires_at, created_at, settled_at
		FROM credit_reservations
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	defer rows.Close()

	var out []*model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID, &res.AccountID, &res.Amount, &res.Status,
			&res.ExpiresAt, &res.CreatedAt, &res.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, &res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return out, nil
}

func debit(ctx context.Context, q querier, accountID string, amount int) (int, error) {
	var remaining int
	err := q.QueryRow(ctx,
		"UPDATE accounts SET credits = credits - $2 WHERE id = $1 AND credits >= $2 RETURNING credits",
		accountID, amount,
	).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}

	// No row updated: either the account is missing or the balance is short.
	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return 0, ErrAccountNotFound
	}
	return 0, ErrInsufficientCredits
}

func settle(ctx context.Context, q querier, reservationID string, status model.ReservationStatus, at time.Time) (string, int, error) {
	var (
		accountID string
		amount    int
	)
	err := q.QueryRow(ctx, `
		UPDATE credit_reservations
		SET status = $2, settled_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING account_id, amount
	`, reservationID, string(status), at).Scan(&accountID, &amount)
	if err == nil {
		return accountID, amount, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", 0, fmt.Errorf("failed to settle reservation: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM credit_reservations WHERE id = $1)", reservationID).Scan(&exists); err != nil {
		return "", 0, fmt.Errorf("failed to check reservation: %w", err)
	}
	if !exists {
		return "", 0, ErrReservationNotFound
	}
	return "", 0, ErrReservationSettled
}
