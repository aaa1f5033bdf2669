package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/moodmeter/moodmeter/internal/model"
)

// Unique constraint names from migrations/000001_accounts.up.sql.
const (
	constraintAccountUsername = "accounts_username_key"
	constraintAccountEmail    = "accounts_email_key"
)

// CreateAccount inserts a new account.
// Returns ErrUsernameExists or ErrEmailExists on a uniqueness violation.
func (r *Repository) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, username, email, credential_hash, credits, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.CredentialHash,
		account.Credits,
		account.CreatedAt,
	)

	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintAccountUsername:
				return ErrUsernameExists
			case constraintAccountEmail:
				return ErrEmailExists
			}
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccountByID retrieves an account by its ID.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	query := `
		SELECT id, username, email, credential_hash, credits, created_at
		FROM accounts
		WHERE id = $1
	`

	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetAccountByUsername retrieves an account by its username.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	query := `
		SELECT id, username, email, credential_hash, credits, created_at
		FROM accounts
		WHERE username = $1
	`

	return scanAccount(r.pool.QueryRow(ctx, query, username))
}

// RecordUsage appends a usage record.
func (r *Repository) RecordUsage(ctx context.Context, usage *model.UsageRecord) error {
	return insertUsage(ctx, r.pool, usage)
}

// ListRecentUsage returns the newest usage records of an account.
// An empty endpoints slice matches every endpoint.
func (r *Repository) ListRecentUsage(ctx context.Context, accountID string, limit int, endpoints []model.Endpoint) ([]*model.UsageRecord, error) {
	query := `
		SELECT id, account_id, endpoint, credits_used, created_at
		FROM usage_records
		WHERE account_id = $1
		  AND (cardinality($2::text[]) = 0 OR endpoint = ANY($2::text[]))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	filter := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		filter = append(filter, string(e))
	}

	rows, err := r.pool.Query(ctx, query, accountID, pq.Array(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	defer rows.Close()

	records := make([]*model.UsageRecord, 0, limit)
	for rows.Next() {
		var u model.UsageRecord
		if err := rows.Scan(&u.ID, &u.AccountID, &u.Endpoint, &u.CreditsUsed, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		records = append(records, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage records: %w", err)
	}

	return records, nil
}

func insertUsage(ctx context.Context, q querier, usage *model.UsageRecord) error {
	query := `
		INSERT INTO usage_records (id, account_id, endpoint, credits_used, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := q.Exec(ctx, query,
		usage.ID,
		usage.AccountID,
		string(usage.Endpoint),
		usage.CreditsUsed,
		usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.CredentialHash,
		&a.Credits,
		&a.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return &a, nil
}
