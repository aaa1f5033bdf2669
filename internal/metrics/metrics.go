// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Analysis outcomes passed to IncAnalysis.
const (
	OutcomeSuccess               = "success"
	OutcomeInsufficientCredits   = "insufficient_credits"
	OutcomeClassifierUnavailable = "classifier_unavailable"
	OutcomeClassifierError       = "classifier_error"
	OutcomeInvalidInput          = "invalid_input"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Account metrics
	IncRegistration()
	IncLogin(status string) // status: "success" or "failed"
	IncAPIKeyIssued()

	// Analysis pipeline metrics
	IncAnalysis(endpoint, outcome string)
	ObserveClassifierDuration(duration time.Duration)

	// Ledger metrics
	IncCreditsDebited(n int)
	IncReservationsReleased(n int)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
