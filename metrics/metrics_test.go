package metrics_test

import (
	"sync"
	"testing"

	"github.com/currentframework/bricks/metrics"
)

func TestIncrementsAndStatusClasses(t *testing.T) {
	m := metrics.NewMetrics()
	m.IncrementTotal()
	m.IncrementTotal()
	m.RecordStatus(200)
	m.RecordStatus(404)
	m.RecordStatus(503)
	m.RecordStatus(301)

	snap := m.Snapshot()
	if snap.TotalRequests != 2 {
		t.Errorf("TotalRequests: got %d, want 2", snap.TotalRequests)
	}
	if snap.Responses2xx != 1 {
		t.Errorf("Responses2xx: got %d, want 1", snap.Responses2xx)
	}
	if snap.Responses3xx != 1 {
		t.Errorf("Responses3xx: got %d, want 1", snap.Responses3xx)
	}
	if snap.Responses4xx != 1 {
		t.Errorf("Responses4xx: got %d, want 1", snap.Responses4xx)
	}
	if snap.Responses5xx != 1 {
		t.Errorf("Responses5xx: got %d, want 1", snap.Responses5xx)
	}
}

func TestRecordStatusIgnoresOutOfRangeCodes(t *testing.T) {
	m := metrics.NewMetrics()
	m.RecordStatus(0)
	m.RecordStatus(999)

	snap := m.Snapshot()
	if snap.Responses2xx+snap.Responses3xx+snap.Responses4xx+snap.Responses5xx != 0 {
		t.Fatalf("expected no status buckets incremented, got %+v", snap)
	}
}

func TestMMPQAndRipCurrentCounters(t *testing.T) {
	m := metrics.NewMetrics()
	m.RecordMMPQPublish()
	m.RecordMMPQPublish()
	m.RecordMMPQDrop()
	m.RecordMMPQDeliver()
	m.RecordRipCurrentRun()

	snap := m.Snapshot()
	if snap.MMPQPublished != 2 {
		t.Errorf("MMPQPublished: got %d, want 2", snap.MMPQPublished)
	}
	if snap.MMPQDropped != 1 {
		t.Errorf("MMPQDropped: got %d, want 1", snap.MMPQDropped)
	}
	if snap.MMPQDelivered != 1 {
		t.Errorf("MMPQDelivered: got %d, want 1", snap.MMPQDelivered)
	}
	if snap.RipCurrentBlockRuns != 1 {
		t.Errorf("RipCurrentBlockRuns: got %d, want 1", snap.RipCurrentBlockRuns)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := metrics.NewMetrics()
	const goroutines = 1000
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			m.IncrementTotal()
			m.RecordStatus(200)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.TotalRequests != goroutines {
		t.Errorf("TotalRequests: got %d, want %d", snap.TotalRequests, goroutines)
	}
	if snap.Responses2xx != goroutines {
		t.Errorf("Responses2xx: got %d, want %d", snap.Responses2xx, goroutines)
	}
}
