// Package api is the HTTP collaborator between the retrieval engine and the
// upstream log service.
//
// # Overview
//
// A Client issues two kinds of calls for one feed, both bearer-authenticated
// and bounded by separate per-call timeouts:
//
//   - listing: GET {base}?starttime=S&endtime=E[&type=T][&domain=D]
//     returning a JSON array of records, newest first
//   - detail: GET {base}/{queue_id}?time={t} returning one JSON object;
//     bulky sub-fields are stripped before the record leaves this package
//
// Non-2xx responses become *Error carrying the structured error body
// ({status, code, message, api-version, extended-code-text, link}) and, for
// 429, the Retry-After hint. Unparseable 2xx bodies surface as
// ErrMalformedResponse and are never retried. Call durations are reported to
// an optional CallRecorder.
package api
