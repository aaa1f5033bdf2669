package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRegistration()
	m.IncLogin("success")
	m.IncLogin("failed")
	m.IncLogin("failed")
	m.IncAPIKeyIssued()
	m.IncCreditsDebited(3)
	m.IncCreditsDebited(-1)
	m.IncReservationsReleased(2)
	m.ObserveClassifierDuration(250 * time.Millisecond)

	snap := m.Snapshot()
	if snap.Registrations != 1 {
		t.Errorf("Registrations = %d, want 1", snap.Registrations)
	}
	if snap.LoginsSucceeded != 1 || snap.LoginsFailed != 2 {
		t.Errorf("Logins = %d/%d, want 1/2", snap.LoginsSucceeded, snap.LoginsFailed)
	}
	if snap.APIKeysIssued != 1 {
		t.Errorf("APIKeysIssued = %d, want 1", snap.APIKeysIssued)
	}
	if snap.CreditsDebited != 3 {
		t.Errorf("CreditsDebited = %d, want 3", snap.CreditsDebited)
	}
	if snap.ReservationsReleased != 2 {
		t.Errorf("ReservationsReleased = %d, want 2", snap.ReservationsReleased)
	}
	if snap.ClassifierDurationCount != 1 || snap.ClassifierDurationNs != int64(250*time.Millisecond) {
		t.Errorf("ClassifierDuration = %d/%d", snap.ClassifierDurationCount, snap.ClassifierDurationNs)
	}
}

func TestInMemoryRecorder_AnalysesSortedAndConcurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				m.IncAnalysis("web_analyze", OutcomeSuccess)
			} else {
				m.IncAnalysis("api_analyze", OutcomeInsufficientCredits)
			}
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	if len(snap.Analyses) != 2 {
		t.Fatalf("Analyses = %+v, want 2 entries", snap.Analyses)
	}
	if snap.Analyses[0].Endpoint != "api_analyze" || snap.Analyses[0].Count != 50 {
		t.Errorf("Analyses[0] = %+v", snap.Analyses[0])
	}
	if snap.Analyses[1].Endpoint != "web_analyze" || snap.Analyses[1].Count != 50 {
		t.Errorf("Analyses[1] = %+v", snap.Analyses[1])
	}
}

func TestNoop_ImplementsRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncAnalysis("web_analyze", OutcomeSuccess)
	r.ObserveClassifierDuration(time.Second)
}
