package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime counters for one engine instance. Counter fields use
// atomic operations so detail workers can report concurrently.
type Metrics struct {
	processed atomic.Int64
	errors    atomic.Int64
	calls     atomic.Int64

	totalCallNs atomic.Int64
	minCallNs   atomic.Int64 // math.MaxInt64 until the first call
	maxCallNs   atomic.Int64

	started time.Time
}

// New creates a Metrics anchored at the current time.
func New() *Metrics {
	m := &Metrics{started: time.Now()}
	m.minCallNs.Store(math.MaxInt64)
	return m
}

// RecordCall records one API call with its duration.
func (m *Metrics) RecordCall(d time.Duration) {
	ns := d.Nanoseconds()
	m.calls.Add(1)
	m.totalCallNs.Add(ns)
	for {
		cur := m.minCallNs.Load()
		if ns >= cur || m.minCallNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	for {
		cur := m.maxCallNs.Load()
		if ns <= cur || m.maxCallNs.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// IncProcessed adds n to the processed-record counter and returns the new total.
func (m *Metrics) IncProcessed(n int64) int64 { return m.processed.Add(n) }

// IncErrors adds n to the error counter and returns the new total.
func (m *Metrics) IncErrors(n int64) int64 { return m.errors.Add(n) }

// Processed returns the number of records processed.
func (m *Metrics) Processed() int64 { return m.processed.Load() }

// Errors returns the number of errors encountered.
func (m *Metrics) Errors() int64 { return m.errors.Load() }

// Calls returns the number of API calls issued.
func (m *Metrics) Calls() int64 { return m.calls.Load() }

// Elapsed returns time since the Metrics was created.
func (m *Metrics) Elapsed() time.Duration { return time.Since(m.started) }

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// Snapshot returns a serializable view of all counters and derived rates.
// Keys are stable; the heartbeat file embeds this map verbatim.
func (m *Metrics) Snapshot() map[string]interface{} {
	processed := m.processed.Load()
	errs := m.errors.Load()
	calls := m.calls.Load()
	totalNs := m.totalCallNs.Load()
	minNs := m.minCallNs.Load()
	maxNs := m.maxCallNs.Load()
	elapsed := m.Elapsed().Seconds()

	avgMs := 0.0
	perCall := 0.0
	if calls > 0 {
		avgMs = float64(totalNs) / float64(calls) / 1e6
		perCall = float64(processed) / float64(calls)
	}
	minMs := 0.0
	if minNs != math.MaxInt64 {
		minMs = float64(minNs) / 1e6
	}
	errRate := 0.0
	if processed+errs > 0 {
		errRate = float64(errs) / float64(processed+errs) * 100
	}
	perSecond := 0.0
	if elapsed > 0 {
		perSecond = float64(processed) / elapsed
	}

	return map[string]interface{}{
		"logs_processed":        processed,
		"errors_count":          errs,
		"api_calls":             calls,
		"avg_api_time_ms":       round2(avgMs),
		"min_api_time_ms":       round2(minMs),
		"max_api_time_ms":       round2(float64(maxNs) / 1e6),
		"error_rate_percent":    round2(errRate),
		"elapsed_time_seconds":  round2(elapsed),
		"logs_per_second":       math.Round(perSecond*1000) / 1000,
		"avg_logs_per_api_call": round2(perCall),
	}
}
