package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedResponse indicates a 2xx response whose body was not parseable
// as the expected structure. The content is unusable, so this is never
// retried.
var ErrMalformedResponse = errors.New("malformed api response")

// Error is a non-2xx API response with its structured error body, when one
// was present. The body fields are diagnostics only.
type Error struct {
	StatusCode int
	StatusText string
	URL        string

	// Optional structured body fields.
	Status           string `json:"status"`
	Code             string `json:"code"`
	Message          string `json:"message"`
	APIVersion       string `json:"api-version"`
	ExtendedCodeText string `json:"extended-code-text"`
	Link             string `json:"link"`

	// Raw body snippet when the body was not JSON.
	BodySnippet string

	// Retry-After header for 429 responses.
	RetryAfter    time.Duration
	HasRetryAfter bool
}

// Error implements the error interface with the same diagnostics layout the
// error-event stream records.
func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("HTTP %d (%s)", e.StatusCode, e.StatusText)}

	var details []string
	for _, kv := range [][2]string{
		{"status", e.Status},
		{"code", e.Code},
		{"message", e.Message},
		{"api-version", e.APIVersion},
		{"extended-code-text", e.ExtendedCodeText},
		{"link", e.Link},
	} {
		if kv[1] != "" {
			details = append(details, kv[0]+": "+kv[1])
		}
	}
	if len(details) > 0 {
		parts = append(parts, strings.Join(details, " | "))
	} else if e.BodySnippet != "" {
		parts = append(parts, "Response body: "+e.BodySnippet)
	}
	return strings.Join(parts, " - ")
}

// RateLimited reports whether the response was an HTTP 429.
func (e *Error) RateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

func statusText(code int) string {
	switch code {
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusNotAcceptable:
		return "Not Acceptable"
	}
	if t := http.StatusText(code); t != "" {
		return t
	}
	return "Unknown"
}

// newError builds an *Error from a failed response body and headers.
func newError(resp *http.Response, body []byte) *Error {
	e := &Error{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp.StatusCode),
		URL:        resp.Request.URL.String(),
	}

	if err := json.Unmarshal(body, e); err != nil || !hasStructuredFields(e) {
		if s := strings.TrimSpace(string(body)); s != "" {
			if len(s) > 200 {
				s = s[:200] + "..."
			}
			e.BodySnippet = s
		}
	}

	if e.RateLimited() {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			e.HasRetryAfter = true
			if secs, err := strconv.Atoi(ra); err == nil {
				e.RetryAfter = time.Duration(secs) * time.Second
			} else {
				// unparseable hint degrades to a fixed wait
				e.RetryAfter = 60 * time.Second
			}
		}
	}
	return e
}

func hasStructuredFields(e *Error) bool {
	return e.Status != "" || e.Code != "" || e.Message != "" ||
		e.APIVersion != "" || e.ExtendedCodeText != "" || e.Link != ""
}
