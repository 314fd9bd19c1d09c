// Package engine drives the incremental retrieval pipeline for one feed.
//
// # Overview
//
// A run covers the half-open range from the persisted checkpoint (or the
// configured start) to the current time. The range is cut into coarse slices
// bounded by the configured maximum gap; each slice is pre-chunked into
// split-interval windows held on a LIFO stack. A window whose listing page
// saturates the server's page cap is split in half and both halves are pushed
// back, so dense traffic narrows the windows until pages fit. Listing pages
// arrive newest-first; a reverse scan restores chronological order, and mail
// entries are enriched with detail fetches through a bounded parallel pool
// that writes results back into their original slots.
//
// Records are buffered and flushed to the sink at the flush size, at window
// completion, and on shutdown. The checkpoint advances with every flush and
// completed window, and the best-known position is persisted before any
// failure propagates, so a rerun resumes rather than refetches.
package engine
