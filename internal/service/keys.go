package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/metrics"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository"
)

// KeyStore persists API key bindings.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByDigest(ctx context.Context, digest string) (*model.APIKey, error)
	ListAPIKeysByAccountID(ctx context.Context, accountID string) ([]*model.APIKey, error)
	CountAPIKeysByAccountID(ctx context.Context, accountID string) (int, error)
}

// KeyCache caches digest to account ID resolutions.
type KeyCache interface {
	GetKeyOwner(ctx context.Context, digest string) (string, error)
	SetKeyOwner(ctx context.Context, digest, accountID string) error
}

// IssuedKey is returned once, when a key is created.
type IssuedKey struct {
	Token string // plaintext, never stored
	Key   *model.APIKey
}

// KeyService issues and resolves API keys.
type KeyService struct {
	keys     KeyStore
	accounts AccountStore
	cache    KeyCache // optional
	limit    int      // 0 = unlimited
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewKeyService creates a new KeyService. cache may be nil.
func NewKeyService(keys KeyStore, accounts AccountStore, cache KeyCache, limit int, logger *slog.Logger, recorder metrics.Recorder) *KeyService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyService{
		keys:     keys,
		accounts: accounts,
		cache:    cache,
		limit:    limit,
		logger:   logger.With("component", "keys"),
		metrics:  recorder,
	}
}

// IssueKey creates a new key bound to accountID.
func (s *KeyService) IssueKey(ctx context.Context, accountID string) (*IssuedKey, error) {
	if _, err := s.accounts.GetAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if s.limit > 0 {
		n, err := s.keys.CountAPIKeysByAccountID(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("count keys: %w", err)
		}
		if n >= s.limit {
			return nil, ErrKeyLimitReached
		}
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}

	key := &model.APIKey{
		ID:          ulid.Make().String(),
		AccountID:   accountID,
		TokenDigest: token.Digest,
		TokenPrefix: token.Prefix,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.keys.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}

	s.metrics.IncAPIKeyIssued()
	return &IssuedKey{Token: token.Plaintext, Key: key}, nil
}

// ResolveKey returns the account that owns token, read fresh from the store.
func (s *KeyService) ResolveKey(ctx context.Context, token string) (*model.Account, error) {
	if !auth.ValidateTokenFormat(token) {
		return nil, ErrInvalidKey
	}
	digest := auth.TokenDigest(token)

	accountID := s.cachedOwner(ctx, digest)
	if accountID == "" {
		key, err := s.keys.GetAPIKeyByDigest(ctx, digest)
		if err != nil {
			if errors.Is(err, repository.ErrAPIKeyNotFound) {
				return nil, ErrInvalidKey
			}
			return nil, fmt.Errorf("get key: %w", err)
		}
		accountID = key.AccountID

		if s.cache != nil {
			if err := s.cache.SetKeyOwner(ctx, digest, accountID); err != nil {
				s.logger.Warn("key cache write failed", "error", err)
			}
		}
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListKeys returns key metadata for an account, newest first.
func (s *KeyService) ListKeys(ctx context.Context, accountID string) ([]*model.APIKey, error) {
	keys, err := s.keys.ListAPIKeysByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *KeyService) cachedOwner(ctx context.Context, digest string) string {
	if s.cache == nil {
		return ""
	}
	accountID, err := s.cache.GetKeyOwner(ctx, digest)
	if err != nil {
		s.logger.Warn("key cache read failed", "error", err)
		return ""
	}
	return accountID
}
