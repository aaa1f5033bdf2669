package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moodmeter/moodmeter/internal/model"
)

// SessionStore keeps browser sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, accountID string, ttl time.Duration) (string, error)
	GetSession(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionService binds browser sessions to accounts.
type SessionService struct {
	store    SessionStore
	accounts *AccountService
	ttl      time.Duration
}

// NewSessionService creates a new SessionService.
func NewSessionService(store SessionStore, accounts *AccountService, ttl time.Duration) *SessionService {
	return &SessionService{store: store, accounts: accounts, ttl: ttl}
}

// TTL returns the session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Start opens a session for accountID and returns its ID.
func (s *SessionService) Start(ctx context.Context, accountID string) (string, error) {
	id, err := s.store.CreateSession(ctx, accountID, s.ttl)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// Resolve returns the account behind sessionID, read fresh from the store.
// Returns ErrUnauthenticated for unknown or expired sessions.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (*model.Account, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}

	accountID, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if accountID == "" {
		return nil, ErrUnauthenticated
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return account, nil
}

// End closes a session.
func (s *SessionService) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, sessionID)
}
