package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/mkdemir/uzmanposta/internal/api"
)

// Class is the retry decision for a failed call.
type Class int

// Failure classes.
const (
	// ClassRetryable covers transient network and generic HTTP failures.
	ClassRetryable Class = iota
	// ClassRateLimited covers HTTP 429 responses; the server wait hint,
	// when present, takes precedence over the exponential schedule.
	ClassRateLimited
	// ClassFatal covers unusable responses and cancellation; never retried.
	ClassFatal
)

// MaxDelay caps the exponential backoff schedule.
const MaxDelay = 60 * time.Second

// ErrRetrievalFailed marks attempt-ceiling exhaustion for one interval.
var ErrRetrievalFailed = errors.New("retrieval failed")

// Classify maps an error to its retry class. Classification is independent of
// I/O so it can be unit tested without a network.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassRetryable
	case errors.Is(err, context.Canceled):
		return ClassFatal
	case errors.Is(err, api.ErrMalformedResponse):
		return ClassFatal
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.RateLimited() {
			return ClassRateLimited
		}
		return ClassRetryable
	}
	return ClassRetryable
}

// Delay computes the exponential backoff before the given attempt:
// base * 2^(attempt-1), capped at MaxDelay.
func Delay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= MaxDelay {
			return MaxDelay
		}
	}
	if d > MaxDelay {
		return MaxDelay
	}
	return d
}

// lookupHost is an indirection over the DNS probe for tests.
var lookupHost = net.LookupHost

// ConnLabel sub-classifies a connection failure for diagnostics. The label
// does not change retry behavior, only the surfaced error text. A DNS label
// is only reported when an independent hostname-resolution probe also fails.
func ConnLabel(err error, rawURL string) string {
	if err == nil {
		return ""
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.RateLimited() {
			return "Rate Limited (HTTP 429)"
		}
		return "API HTTP Error"
	}

	msg := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return "Connection Timeout"
	}
	if errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(msg, "connection refused") {
		return "Connection Refused"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !resolves(rawURL) {
		return "DNS Resolution Failed"
	}
	if strings.Contains(msg, "tls") || strings.Contains(msg, "certificate") || strings.Contains(msg, "x509") {
		return "SSL/TLS Error"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if !resolves(rawURL) {
			return "DNS Resolution Failed"
		}
		return "Connection Error"
	}
	return "Request Error"
}

// resolves probes whether the URL's hostname currently resolves. Probe errors
// other than resolution failure count as resolvable so the label stays
// conservative.
func resolves(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	if _, err := lookupHost(u.Hostname()); err != nil {
		var dnsErr *net.DNSError
		return !errors.As(err, &dnsErr)
	}
	return true
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Attempt describes one failed attempt, passed to the retry observer.
type Attempt struct {
	Number int
	Class  Class
	Label  string
	Err    error
	Wait   time.Duration
	Final  bool

	// Elapsed is how long the failed call itself took.
	Elapsed time.Duration
}

// Policy drives retries around one network operation.
type Policy struct {
	MaxAttempts int
	BaseSleep   time.Duration

	// URL is used for connection-failure sub-classification.
	URL string

	// OnRetry observes every failed attempt (for error-event logging).
	OnRetry func(a Attempt)
}

// Do runs op until it succeeds, exhausts the attempt ceiling, or hits a fatal
// error. Sleeps between attempts are interruptible by ctx so shutdown is
// prompt rather than waiting out a full backoff. Ceiling exhaustion for a
// non-fatal class returns ErrRetrievalFailed wrapping the last error.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		err := op(ctx)
		elapsed := time.Since(started)
		if err == nil {
			return nil
		}
		lastErr = err

		class := Classify(err)
		if class == ClassFatal {
			return err
		}

		wait := Delay(attempt, p.BaseSleep)
		if class == ClassRateLimited {
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.HasRetryAfter {
				wait = apiErr.RetryAfter
			}
		}

		final := attempt == attempts
		if p.OnRetry != nil {
			p.OnRetry(Attempt{
				Number:  attempt,
				Class:   class,
				Label:   ConnLabel(err, p.URL),
				Err:     err,
				Wait:    wait,
				Final:   final,
				Elapsed: elapsed,
			})
		}
		if final {
			break
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetrievalFailed, attempts, lastErr)
}
