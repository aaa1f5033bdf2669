package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/moodmeter/moodmeter/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	rec.IncRegistration()
	rec.IncLogin("success")
	rec.IncLogin("failed")
	rec.IncAnalysis("api_analyze", metrics.OutcomeSuccess)
	rec.IncAnalysis("api_analyze", metrics.OutcomeSuccess)
	rec.IncAnalysis("web_analyze", metrics.OutcomeInsufficientCredits)
	rec.IncCreditsDebited(2)
	rec.ObserveClassifierDuration(1500 * time.Millisecond)

	h := NewMetricsHandler(rec)
	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := w.Body.String()
	for _, line := range []string{
		"moodmeter_registrations_total 1",
		`moodmeter_logins_total{status="success"} 1`,
		`moodmeter_logins_total{status="failed"} 1`,
		`moodmeter_analyses_total{endpoint="api_analyze",outcome="success"} 2`,
		`moodmeter_analyses_total{endpoint="web_analyze",outcome="insufficient_credits"} 1`,
		"moodmeter_credits_debited_total 2",
		"moodmeter_classifier_duration_seconds_count 1",
		"moodmeter_classifier_duration_seconds_sum 1.500000",
	} {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("metrics output missing %q:\n%s", line, body)
		}
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
