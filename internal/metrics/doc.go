// Package metrics accumulates per-engine runtime counters: records processed,
// errors, API call count and call-duration min/max/sum. Counters are scoped to
// one engine instance and reset only by process restart. Snapshot() produces
// the map embedded into the heartbeat file.
package metrics
