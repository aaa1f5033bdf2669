// Package testutil holds shared helpers for unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// NewRedis starts an in-process Redis server and returns a client for it.
// Both are closed when the test ends.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

// ============================================================================
// Test Data Factories
// ============================================================================

var seq atomic.Uint64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq.Add(1))
}

// NewTestAccount creates an account with the default balance.
// The credential hash is a placeholder; use auth.HashCredential when a test
// needs to log in.
func NewTestAccount(t testing.TB, username string) *model.Account {
	t.Helper()
	return &model.Account{
		ID:             ulid.Make().String(),
		Username:       username,
		Email:          username + "@example.com",
		CredentialHash: "$argon2id$placeholder",
		Credits:        model.DefaultCredits,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestAPIKey creates a key bound to accountID and returns it together with
// its plaintext token.
func NewTestAPIKey(t testing.TB, accountID string) (*model.APIKey, string) {
	t.Helper()

	token, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	return &model.APIKey{
		ID:          ulid.Make().String(),
		AccountID:   accountID,
		TokenDigest: token.Digest,
		TokenPrefix: token.Prefix,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}, token.Plaintext
}

// NewTestReservation creates a pending reservation for accountID.
func NewTestReservation(t testing.TB, accountID string, amount int, ttl time.Duration) *model.Reservation {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Reservation{
		ID:        ulid.Make().String(),
		AccountID: accountID,
		Amount:    amount,
		Status:    model.ReservationPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}
