// Package memory is an in-process implementation of the repository
// interfaces with the same error semantics as the PostgreSQL store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository"
)

// Store keeps every entity in maps guarded by one mutex.
// Returned entities are copies.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*model.Account
	byUsername   map[string]string
	byEmail      map[string]string
	keys         map[string]*model.APIKey // by digest
	usage        []*model.UsageRecord
	reservations map[string]*model.Reservation
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]*model.Account),
		byUsername:   make(map[string]string),
		byEmail:      make(map[string]string),
		keys:         make(map[string]*model.APIKey),
		reservations: make(map[string]*model.Reservation),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Account store

func (s *Store) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[a.Username]; ok {
		return repository.ErrUsernameExists
	}
	if _, ok := s.byEmail[a.Email]; ok {
		return repository.ErrEmailExists
	}

	cp := *a
	s.accounts[a.ID] = &cp
	s.byUsername[a.Username] = a.ID
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *Store) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()

	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return s.GetAccountByID(ctx, id)
}

func (s *Store) RecordUsage(_ context.Context, u *model.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[u.AccountID]; !ok {
		return repository.ErrAccountNotFound
	}
	cp := *u
	s.usage = append(s.usage, &cp)
	return nil
}

func (s *Store) ListRecentUsage(_ context.Context, accountID string, limit int, endpoints []model.Endpoint) ([]*model.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.UsageRecord
	for _, u := range s.usage {
		if u.AccountID != accountID || !matchEndpoint(u.Endpoint, endpoints) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchEndpoint(e model.Endpoint, filter []model.Endpoint) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == e {
			return true
		}
	}
	return false
}

// Key store

func (s *Store) CreateAPIKey(_ context.Context, k *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[k.AccountID]; !ok {
		return repository.ErrAccountNotFound
	}
	cp := *k
	s.keys[k.TokenDigest] = &cp
	return nil
}

func (s *Store) GetAPIKeyByDigest(_ context.Context, digest string) (*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.keys[digest]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *Store) ListAPIKeysByAccountID(_ context.Context, accountID string) ([]*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.APIKey
	for _, k := range s.keys {
		if k.AccountID == accountID {
			cp := *k
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountAPIKeysByAccountID(_ context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, k := range s.keys {
		if k.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// Ledger store

func (s *Store) DebitCredits(_ context.Context, accountID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.debitLocked(accountID, amount)
}

func (s *Store) ReserveCredits(_ context.Context, res *model.Reservation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, err := s.debitLocked(res.AccountID, res.Amount)
	if err != nil {
		return 0, err
	}

	res.Status = model.ReservationPending
	cp := *res
	s.reservations[res.ID] = &cp
	return remaining, nil
}

func (s *Store) CommitReservation(_ context.Context, reservationID string, usage *model.UsageRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.settleLocked(reservationID, model.ReservationCommitted, usage.CreatedAt)
	if err != nil {
		return 0, err
	}

	usage.AccountID = res.AccountID
	usage.CreditsUsed = res.Amount
	cp := *usage
	s.usage = append(s.usage, &cp)

	return s.accounts[res.AccountID].Credits, nil
}

func (s *Store) ReleaseReservation(_ context.Context, reservationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.settleLocked(reservationID, model.ReservationReleased, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	a := s.accounts[res.AccountID]
	a.Credits += res.Amount
	return a.Credits, nil
}

func (s *Store) ListExpiredReservations(_ context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Reservation
	for _, r := range s.reservations {
		if r.IsExpired(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetReservation returns a copy of a reservation. Used by tests.
func (s *Store) GetReservation(id string) (*model.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

func (s *Store) debitLocked(accountID string, amount int) (int, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	if a.Credits < amount {
		return 0, repository.ErrInsufficientCredits
	}
	a.Credits -= amount
	return a.Credits, nil
}

func (s *Store) settleLocked(id string, status model.ReservationStatus, at time.Time) (*model.Reservation, error) {
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	if !r.IsPending() {
		return nil, repository.ErrReservationSettled
	}
	r.Status = status
	r.SettledAt = &at
	return r, nil
}
