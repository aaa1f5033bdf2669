package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/moodmeter/moodmeter/internal/classifier"
	"github.com/moodmeter/moodmeter/internal/ledger"
	"github.com/moodmeter/moodmeter/internal/metrics"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository/memory"
	"github.com/moodmeter/moodmeter/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires the services against the in-memory store.
type testEnv struct {
	store    *memory.Store
	ledger   *ledger.Ledger
	accounts *AccountService
	keys     *KeyService
	gateway  *AnalysisGateway
	metrics  *metrics.InMemoryRecorder
}

func newTestEnv(t *testing.T, c Classifier) *testEnv {
	t.Helper()

	store := memory.New()
	rec := metrics.NewInMemory()
	l := ledger.New(store, time.Minute, discardLogger(), rec)

	if c == nil {
		c = classifier.NewHandle(classifier.DriverLexicon, classifier.NewLexicon(), nil)
	}

	accounts := NewAccountService(store, model.DefaultCredits, rec)
	return &testEnv{
		store:    store,
		ledger:   l,
		accounts: accounts,
		keys:     NewKeyService(store, store, nil, 0, discardLogger(), rec),
		gateway:  NewAnalysisGateway(l, c, time.Second, discardLogger(), rec),
		metrics:  rec,
	}
}

// seedAccount inserts an account directly, skipping password hashing.
func (e *testEnv) seedAccount(t *testing.T, credits int) *model.Account {
	t.Helper()
	a := testutil.NewTestAccount(t, testutil.UniqueID("user"))
	a.Credits = credits
	if err := e.store.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return a
}

func (e *testEnv) balance(t *testing.T, accountID string) int {
	t.Helper()
	a, err := e.store.GetAccountByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	return a.Credits
}

func (e *testEnv) usageCount(t *testing.T, accountID string) int {
	t.Helper()
	records, err := e.store.ListRecentUsage(context.Background(), accountID, 1000, nil)
	if err != nil {
		t.Fatalf("ListRecentUsage failed: %v", err)
	}
	return len(records)
}
