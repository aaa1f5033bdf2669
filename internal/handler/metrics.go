package handler

import (
	"fmt"
	"net/http"

	"github.com/moodmeter/moodmeter/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "moodmeter_registrations_total %d\n", snap.Registrations)
	writeMetric(w, "moodmeter_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "moodmeter_logins_total{status=\"failed\"} %d\n", snap.LoginsFailed)
	writeMetric(w, "moodmeter_api_keys_issued_total %d\n", snap.APIKeysIssued)

	for _, a := range snap.Analyses {
		writeMetric(w, "moodmeter_analyses_total{endpoint=%q,outcome=%q} %d\n", a.Endpoint, a.Outcome, a.Count)
	}

	writeMetric(w, "moodmeter_credits_debited_total %d\n", snap.CreditsDebited)
	writeMetric(w, "moodmeter_reservations_released_total %d\n", snap.ReservationsReleased)

	writeMetric(w, "moodmeter_classifier_duration_seconds_count %d\n", snap.ClassifierDurationCount)
	writeMetric(w, "moodmeter_classifier_duration_seconds_sum %.6f\n", float64(snap.ClassifierDurationNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
