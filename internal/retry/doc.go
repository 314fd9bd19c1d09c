// Package retry implements the rate/retry policy around every network call.
//
// # Overview
//
// The policy is split into a pure classification layer and a thin loop
// driver so decisions are testable without I/O:
//
//   - Classify maps a failure to retryable / rate-limited / fatal
//   - Delay computes min(base * 2^(attempt-1), 60s)
//   - ConnLabel sub-classifies connection failures (timeout, refused, DNS via
//     an independent resolver probe, TLS, generic) for diagnostics only
//   - Policy.Do runs the loop with ctx-interruptible sleeps
//
// Rate-limited responses honor the server's Retry-After hint over the
// exponential schedule and are logged distinctly, but share the same attempt
// ceiling. Exhausting the ceiling surfaces ErrRetrievalFailed for the
// enclosing interval while preserving the last good checkpoint upstream.
package retry
