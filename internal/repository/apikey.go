package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/moodmeter/moodmeter/internal/model"
)

// CreateAPIKey inserts a new API key binding.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, account_id, token_digest, token_prefix, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		key.ID,
		key.AccountID,
		key.TokenDigest,
		key.TokenPrefix,
		key.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyByDigest retrieves the key whose token hashes to digest.
func (r *Repository) GetAPIKeyByDigest(ctx context.Context, digest string) (*model.APIKey, error) {
	query := `
		SELECT id, account_id, token_digest, token_prefix, created_at
		FROM api_keys
		WHERE token_digest = $1
	`

	var key model.APIKey
	err := r.pool.QueryRow(ctx, query, digest).Scan(
		&key.ID,
		&key.AccountID,
		&key.TokenDigest,
		&key.TokenPrefix,
		&key.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	return &key, nil
}

// ListAPIKeysByAccountID retrieves all keys of an account, newest first.
func (r *Repository) ListAPIKeysByAccountID(ctx context.Context, accountID string) ([]*model.APIKey, error) {
	query := `
		SELECT id, account_id, token_digest, token_prefix, created_at
		FROM api_keys
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		var key model.APIKey
		if err := rows.Scan(&key.ID, &key.AccountID, &key.TokenDigest, &key.TokenPrefix, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}

// CountAPIKeysByAccountID returns how many keys an account has been issued.
func (r *Repository) CountAPIKeysByAccountID(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM api_keys WHERE account_id = $1", accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count API keys: %w", err)
	}
	return n, nil
}
