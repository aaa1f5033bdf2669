package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/classifier"
	"github.com/moodmeter/moodmeter/internal/handler/dto"
	"github.com/moodmeter/moodmeter/internal/ledger"
	"github.com/moodmeter/moodmeter/internal/model"
	"github.com/moodmeter/moodmeter/internal/repository/memory"
	"github.com/moodmeter/moodmeter/internal/service"
	"github.com/moodmeter/moodmeter/internal/testutil"
)

type failingModel struct{}

func (failingModel) Classify(context.Context, string) (classifier.Result, error) {
	return classifier.Result{}, errors.New("upstream returned 500")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPages(t *testing.T) *Pages {
	t.Helper()
	pages, err := NewPages(discardLogger())
	if err != nil {
		t.Fatalf("NewPages failed: %v", err)
	}
	return pages
}

type analyzeEnv struct {
	store   *memory.Store
	handler *AnalyzeHandler
}

func newAnalyzeEnv(t *testing.T, sentiment *classifier.Handle) *analyzeEnv {
	t.Helper()
	store := memory.New()
	l := ledger.New(store, time.Minute, discardLogger(), nil)
	gateway := service.NewAnalysisGateway(l, sentiment, time.Second, discardLogger(), nil)
	return &analyzeEnv{
		store:   store,
		handler: NewAnalyzeHandler(gateway, newTestPages(t), discardLogger()),
	}
}

func (e *analyzeEnv) seed(t *testing.T, credits int) *model.Account {
	t.Helper()
	a := testutil.NewTestAccount(t, testutil.UniqueID("user"))
	a.Credits = credits
	if err := e.store.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return a
}

func (e *analyzeEnv) credits(t *testing.T, id string) int {
	t.Helper()
	a, err := e.store.GetAccountByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccountByID failed: %v", err)
	}
	return a.Credits
}

func withAccount(r *http.Request, a *model.Account, method string) *http.Request {
	return r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{Account: a, Method: method}))
}

func lexiconHandle() *classifier.Handle {
	return classifier.NewHandle(classifier.DriverLexicon, classifier.NewLexicon(), nil)
}

func TestAnalyzeHandler_API(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		sentiment   *classifier.Handle
		credits     int
		body        string
		wantStatus  int
		wantError   string
		wantCredits int
	}{
		{
			name:        "success",
			sentiment:   lexiconHandle(),
			credits:     3,
			body:        `{"text":"great product"}`,
			wantStatus:  http.StatusOK,
			wantCredits: 2,
		},
		{
			name:        "no credits",
			sentiment:   lexiconHandle(),
			credits:     0,
			body:        `{"text":"great product"}`,
			wantStatus:  http.StatusPaymentRequired,
			wantError:   "Not enough credits",
			wantCredits: 0,
		},
		{
			name:        "classifier not loaded",
			sentiment:   classifier.NewHandle(classifier.DriverHTTP, nil, errors.New("timeout")),
			credits:     3,
			body:        `{"text":"great product"}`,
			wantStatus:  http.StatusServiceUnavailable,
			wantError:   "AI service temporarily unavailable",
			wantCredits: 3,
		},
		{
			name:        "classifier failure is not charged",
			sentiment:   classifier.NewHandle(classifier.DriverHTTP, failingModel{}, nil),
			credits:     3,
			body:        `{"text":"great product"}`,
			wantStatus:  http.StatusBadGateway,
			wantError:   "AI service error",
			wantCredits: 3,
		},
		{
			name:        "credit check precedes body validation",
			sentiment:   lexiconHandle(),
			credits:     0,
			body:        `{}`,
			wantStatus:  http.StatusPaymentRequired,
			wantError:   "Not enough credits",
			wantCredits: 0,
		},
		{
			name:        "missing text",
			sentiment:   lexiconHandle(),
			credits:     3,
			body:        ``,
			wantStatus:  http.StatusBadRequest,
			wantError:   "Text field required",
			wantCredits: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newAnalyzeEnv(t, tt.sentiment)
			acct := env.seed(t, tt.credits)

			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body))
			req = withAccount(req, acct, model.AuthMethodAPIKey)
			rec := httptest.NewRecorder()
			env.handler.API(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantError != "" {
				var body dto.APIError
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Error != tt.wantError {
					t.Errorf("error = %q, want %q", body.Error, tt.wantError)
				}
			} else {
				var body dto.AnalyzeResponse
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Sentiment != classifier.LabelPositive || body.CreditsRemaining != tt.wantCredits {
					t.Errorf("response = %+v", body)
				}
			}

			if got := env.credits(t, acct.ID); got != tt.wantCredits {
				t.Errorf("credits = %d, want %d", got, tt.wantCredits)
			}
		})
	}
}

func TestAnalyzeHandler_WebEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sentiment  *classifier.Handle
		credits    int
		text       string
		wantStatus int
		wantCode   string
	}{
		{"no credits", lexiconHandle(), 0, "hello", http.StatusPaymentRequired, "INSUFFICIENT_CREDITS"},
		{"not loaded", classifier.NewHandle(classifier.DriverHTTP, nil, errors.New("down")), 1, "hello", http.StatusServiceUnavailable, "CLASSIFIER_UNAVAILABLE"},
		{"upstream error", classifier.NewHandle(classifier.DriverHTTP, failingModel{}, nil), 1, "hello", http.StatusBadGateway, "CLASSIFIER_ERROR"},
		{"blank text", lexiconHandle(), 1, "  ", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newAnalyzeEnv(t, tt.sentiment)
			acct := env.seed(t, tt.credits)

			form := url.Values{"text": {tt.text}}
			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req = withAccount(req, acct, model.AuthMethodSession)
			rec := httptest.NewRecorder()
			env.handler.Web(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
			if got := env.credits(t, acct.ID); got != tt.credits {
				t.Errorf("credits = %d, want unchanged %d", got, tt.credits)
			}
		})
	}
}

func TestAnalyzeHandler_WebHTML(t *testing.T) {
	t.Parallel()

	env := newAnalyzeEnv(t, lexiconHandle())
	acct := env.seed(t, 0)

	form := url.Values{"text": {"<script>alert(1)</script>"}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	req = withAccount(req, acct, model.AuthMethodSession)
	rec := httptest.NewRecorder()
	env.handler.Web(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Not enough credits") {
		t.Errorf("page missing error message:\n%s", body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("submitted text was not escaped")
	}
}

func TestAnalyzeHandler_APIEchoesTextVerbatim(t *testing.T) {
	t.Parallel()

	env := newAnalyzeEnv(t, lexiconHandle())
	acct := env.seed(t, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze",
		strings.NewReader(`{"text":"I love <this> café & more"}`))
	req = withAccount(req, acct, model.AuthMethodAPIKey)
	rec := httptest.NewRecorder()
	env.handler.API(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"text":"I love <this> café & more"`) {
		t.Errorf("text not echoed verbatim: %s", body)
	}
	if strings.Contains(body, `\u003c`) || strings.Contains(body, `\u0026`) {
		t.Errorf("body is HTML-escaped: %s", body)
	}
}
