package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/metrics"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository"
)

// DashboardUsageLimit is the number of usage records shown on the dashboard.
const DashboardUsageLimit = 5

// AccountStore persists accounts and their usage history.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	RecordUsage(ctx context.Context, usage *model.UsageRecord) error
	ListRecentUsage(ctx context.Context, accountID string, limit int, endpoints []model.Endpoint) ([]*model.UsageRecord, error)
}

// AccountService handles registration, login and account reads.
type AccountService struct {
	store          AccountStore
	defaultCredits int
	metrics        metrics.Recorder
}

// NewAccountService creates a new AccountService.
func NewAccountService(store AccountStore, defaultCredits int, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if defaultCredits <= 0 {
		defaultCredits = model.DefaultCredits
	}
	return &AccountService{
		store:          store,
		defaultCredits: defaultCredits,
		metrics:        recorder,
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Username string `validate:"required,min=3,max=32,alphanum"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=128"`
}

var registerFields = map[string]string{
	"Username": "username",
	"Email":    "email",
	"Password": "password",
}

// Register creates an account with the default balance.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := validateStruct(input, registerFields); err != nil {
		return nil, err
	}

	hash, err := auth.HashCredential(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	account := &model.Account{
		ID:             ulid.Make().String(),
		Username:       input.Username,
		Email:          input.Email,
		CredentialHash: hash,
		Credits:        s.defaultCredits,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrDuplicateUsername
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.metrics.IncRegistration()
	return account, nil
}

// Authenticate returns the account matching username and password.
// Returns ErrAccountNotFound or ErrInvalidCredential; both take the same
// time so callers cannot tell them apart by latency.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.store.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			auth.BurnVerify(password)
			s.metrics.IncLogin("failed")
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	ok, err := auth.VerifyCredential(password, account.CredentialHash)
	if err != nil && !errors.Is(err, auth.ErrInvalidHash) {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if !ok {
		s.metrics.IncLogin("failed")
		return nil, ErrInvalidCredential
	}

	s.metrics.IncLogin("success")
	return account, nil
}

// GetAccount returns the current state of an account.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// RecordUsage appends a usage record outside of a reservation. It is the
// entry point for usage charged out of band, such as a Ledger.Debit; analyses
// record usage when their reservation commits.
func (s *AccountService) RecordUsage(ctx context.Context, accountID string, endpoint model.Endpoint, creditsUsed int) (*model.UsageRecord, error) {
	if !endpoint.IsValid() {
		return nil, fieldError("endpoint", "is invalid")
	}
	if creditsUsed <= 0 {
		return nil, fieldError("credits_used", "must be positive")
	}

	usage := &model.UsageRecord{
		ID:          ulid.Make().String(),
		AccountID:   accountID,
		Endpoint:    endpoint,
		CreditsUsed: creditsUsed,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.RecordUsage(ctx, usage); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("record usage: %w", err)
	}
	return usage, nil
}

// RecentUsage returns up to limit usage records, newest first, optionally
// restricted to endpoints.
func (s *AccountService) RecentUsage(ctx context.Context, accountID string, limit int, endpoints ...model.Endpoint) ([]*model.UsageRecord, error) {
	if limit <= 0 {
		limit = DashboardUsageLimit
	}
	for _, e := range endpoints {
		if !e.IsValid() {
			return nil, fieldError("endpoint", "is invalid")
		}
	}

	records, err := s.store.ListRecentUsage(ctx, accountID, limit, endpoints)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return records, nil
}
