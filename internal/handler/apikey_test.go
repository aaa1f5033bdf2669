package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository/memory"
	"github.com/moodmeter/moodmeter/internal/service"
	"github.com/moodmeter/moodmeter/internal/testutil"
)

func TestAPIKeyHandler_GenerateKey(t *testing.T) {
	t.Parallel()

	store := memory.New()
	acct := testutil.NewTestAccount(t, testutil.UniqueID("keys"))
	if err := store.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	keys := service.NewKeyService(store, store, nil, 1, discardLogger(), nil)
	h := NewAPIKeyHandler(keys, discardLogger())

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate_key", nil)
		req = withAccount(req, acct, model.AuthMethodSession)
		rec := httptest.NewRecorder()
		h.GenerateKey(rec, req)
		return rec
	}

	rec := call()
	if rec.Code != http.StatusOK {
		t.Fatalf("first key: status = %d, want 200", rec.Code)
	}
	var body model.GenerateKeyResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.APIKey == "" {
		t.Fatal("api_key is empty")
	}

	owner, err := keys.ResolveKey(context.Background(), body.APIKey)
	if err != nil {
		t.Fatalf("ResolveKey failed: %v", err)
	}
	if owner.ID != acct.ID {
		t.Errorf("key owner = %q, want %q", owner.ID, acct.ID)
	}

	rec = call()
	if rec.Code != http.StatusConflict {
		t.Errorf("over limit: status = %d, want 409", rec.Code)
	}
}

func TestAPIKeyHandler_UnknownAccount(t *testing.T) {
	t.Parallel()

	store := memory.New()
	h := NewAPIKeyHandler(service.NewKeyService(store, store, nil, 0, discardLogger(), nil), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/generate_key", nil)
	req = withAccount(req, &model.Account{ID: "missing"}, model.AuthMethodSession)
	rec := httptest.NewRecorder()
	h.GenerateKey(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
