package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// AnalysisCount is one endpoint/outcome pair of the analyses counter.
type AnalysisCount struct {
	Endpoint string
	Outcome  string
	Count    uint64
}

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations           uint64
	LoginsSucceeded         uint64
	LoginsFailed            uint64
	APIKeysIssued           uint64
	CreditsDebited          uint64
	ReservationsReleased    uint64
	ClassifierDurationCount uint64
	ClassifierDurationNs    int64
	Analyses                []AnalysisCount // sorted by endpoint, then outcome
}

type analysisKey struct {
	endpoint string
	outcome  string
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	registrations           uint64
	loginsSucceeded         uint64
	loginsFailed            uint64
	apiKeysIssued           uint64
	creditsDebited          uint64
	reservationsReleased    uint64
	classifierDurationCount uint64
	classifierDurationNs    int64

	mu       sync.Mutex
	analyses map[analysisKey]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{analyses: make(map[analysisKey]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	snap := Snapshot{
		Registrations:           atomic.LoadUint64(&m.registrations),
		LoginsSucceeded:         atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:            atomic.LoadUint64(&m.loginsFailed),
		APIKeysIssued:           atomic.LoadUint64(&m.apiKeysIssued),
		CreditsDebited:          atomic.LoadUint64(&m.creditsDebited),
		ReservationsReleased:    atomic.LoadUint64(&m.reservationsReleased),
		ClassifierDurationCount: atomic.LoadUint64(&m.classifierDurationCount),
		ClassifierDurationNs:    atomic.LoadInt64(&m.classifierDurationNs),
	}

	m.mu.Lock()
	for k, v := range m.analyses {
		snap.Analyses = append(snap.Analyses, AnalysisCount{Endpoint: k.endpoint, Outcome: k.outcome, Count: v})
	}
	m.mu.Unlock()

	sort.Slice(snap.Analyses, func(i, j int) bool {
		a, b := snap.Analyses[i], snap.Analyses[j]
		if a.Endpoint != b.Endpoint {
			return a.Endpoint < b.Endpoint
		}
		return a.Outcome < b.Outcome
	})

	return snap
}

// IncRegistration increments the registrations counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == "success" {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncAPIKeyIssued increments the issued keys counter.
func (m *InMemoryRecorder) IncAPIKeyIssued() {
	atomic.AddUint64(&m.apiKeysIssued, 1)
}

// IncAnalysis increments the analyses counter for endpoint and outcome.
func (m *InMemoryRecorder) IncAnalysis(endpoint, outcome string) {
	m.mu.Lock()
	m.analyses[analysisKey{endpoint, outcome}]++
	m.mu.Unlock()
}

// ObserveClassifierDuration records one classifier call.
func (m *InMemoryRecorder) ObserveClassifierDuration(duration time.Duration) {
	atomic.AddUint64(&m.classifierDurationCount, 1)
	atomic.AddInt64(&m.classifierDurationNs, duration.Nanoseconds())
}

// IncCreditsDebited adds n to the debited credits counter.
func (m *InMemoryRecorder) IncCreditsDebited(n int) {
	if n > 0 {
		atomic.AddUint64(&m.creditsDebited, uint64(n))
	}
}

// IncReservationsReleased adds n to the released reservations counter.
func (m *InMemoryRecorder) IncReservationsReleased(n int) {
	if n > 0 {
		atomic.AddUint64(&m.reservationsReleased, uint64(n))
	}
}
