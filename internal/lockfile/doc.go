// Package lockfile provides the per-feed single-instance guarantee: an
// exclusive non-blocking flock acquired before any retrieval starts and
// released on every exit path including failure. "Already locked" terminates
// the invocation cleanly rather than fatally.
package lockfile
