package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecordCallMinMax(t *testing.T) {
	m := New()
	m.RecordCall(20 * time.Millisecond)
	m.RecordCall(5 * time.Millisecond)
	m.RecordCall(50 * time.Millisecond)

	snap := m.Snapshot()
	if snap["api_calls"].(int64) != 3 {
		t.Fatalf("calls: %v", snap["api_calls"])
	}
	if snap["min_api_time_ms"].(float64) != 5.0 {
		t.Fatalf("min: %v", snap["min_api_time_ms"])
	}
	if snap["max_api_time_ms"].(float64) != 50.0 {
		t.Fatalf("max: %v", snap["max_api_time_ms"])
	}
	if snap["avg_api_time_ms"].(float64) != 25.0 {
		t.Fatalf("avg: %v", snap["avg_api_time_ms"])
	}
}

func TestSnapshotZeroCalls(t *testing.T) {
	m := New()
	snap := m.Snapshot()
	if snap["min_api_time_ms"].(float64) != 0.0 {
		t.Fatalf("min with no calls should be 0, got %v", snap["min_api_time_ms"])
	}
	if snap["avg_logs_per_api_call"].(float64) != 0.0 {
		t.Fatalf("per-call with no calls should be 0")
	}
}

func TestErrorRate(t *testing.T) {
	m := New()
	m.IncProcessed(3)
	m.IncErrors(1)
	snap := m.Snapshot()
	if snap["error_rate_percent"].(float64) != 25.0 {
		t.Fatalf("error rate: %v", snap["error_rate_percent"])
	}
}

func TestConcurrentCounters(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncProcessed(1)
				m.RecordCall(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	if m.Processed() != 800 || m.Calls() != 800 {
		t.Fatalf("processed=%d calls=%d", m.Processed(), m.Calls())
	}
}
