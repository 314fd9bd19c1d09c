// Package sink handles everything the harvester writes besides the
// checkpoint: per-period JSONL output files, the structured error-event
// stream, the monitoring heartbeat, and retention cleanup of aged files.
//
// # Overview
//
// Output and error file names are strftime-style patterns resolved at each
// flush, so long runs roll into new period files without coordination.
// Writer syncs before returning so the caller can advance its checkpoint the
// moment a flush completes. ErrorLog masks the API key at construction and
// never lets its own write failures mask the error being reported. Retention
// ranks period files by the timestamp parsed from their names and removes
// everything past the newest N, optionally archiving with zstd first.
package sink
