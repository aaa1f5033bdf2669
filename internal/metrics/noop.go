package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncRegistration()                                 {}
func (n *NoopRecorder) IncLogin(status string)                           {}
func (n *NoopRecorder) IncAPIKeyIssued()                                 {}
func (n *NoopRecorder) IncAnalysis(endpoint, outcome string)             {}
func (n *NoopRecorder) ObserveClassifierDuration(duration time.Duration) {}
func (n *NoopRecorder) IncCreditsDebited(count int)                      {}
func (n *NoopRecorder) IncReservationsReleased(count int)                {}
