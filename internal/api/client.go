package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkdemir/uzmanposta/internal/record"
)

// CallRecorder receives the duration of every completed HTTP exchange.
// *metrics.Metrics satisfies it.
type CallRecorder interface {
	RecordCall(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordCall(time.Duration) {}

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Domain   string
	LogType  string
	Category record.Category

	ListTimeout   time.Duration
	DetailTimeout time.Duration

	// Recorder is optional; defaults to a no-op.
	Recorder CallRecorder

	// HTTPClient is optional; defaults to a shared client. Timeouts are
	// applied per call, not on the client.
	HTTPClient *http.Client
}

// Client issues listing and detail calls against one feed's API endpoint with
// a bearer token. It is safe for concurrent use; detail workers share it.
type Client struct {
	opts Options
	hc   *http.Client
	rec  CallRecorder
}

// New creates a Client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	rec := opts.Recorder
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Client{opts: opts, hc: hc, rec: rec}
}

// BaseURL returns the listing endpoint.
func (c *Client) BaseURL() string { return c.opts.BaseURL }

// get performs one timed GET and returns the response body on 2xx.
func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	started := time.Now()
	resp, err := c.hc.Do(req)
	c.rec.RecordCall(time.Since(started))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp, body)
	}
	return body, nil
}

// List fetches the listing page for the half-open window [start, end).
// The "type" parameter is included for categories that use it; "domain" only
// when configured.
func (c *Client) List(ctx context.Context, start, end int64) ([]record.Record, error) {
	q := url.Values{}
	q.Set("starttime", strconv.FormatInt(start, 10))
	q.Set("endtime", strconv.FormatInt(end, 10))
	if c.opts.Category.UsesType() && c.opts.LogType != "" {
		q.Set("type", c.opts.LogType)
	}
	if c.opts.Domain != "" {
		q.Set("domain", c.opts.Domain)
	}
	listURL := c.opts.BaseURL + "?" + q.Encode()

	body, err := c.get(ctx, listURL, c.opts.ListTimeout)
	if err != nil {
		return nil, err
	}

	var recs []record.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrMalformedResponse, listURL, err)
	}
	return recs, nil
}

// DetailURL returns the detail endpoint for one queue id and event time.
func (c *Client) DetailURL(ref record.DetailRef) string {
	return fmt.Sprintf("%s/%s?time=%d", c.opts.BaseURL, url.PathEscape(ref.QueueID), ref.Time)
}

// Detail fetches the extended record for one detail reference and strips the
// bulky payload sub-fields before returning it.
func (c *Client) Detail(ctx context.Context, ref record.DetailRef) (record.Record, error) {
	detailURL := c.DetailURL(ref)
	body, err := c.get(ctx, detailURL, c.opts.DetailTimeout)
	if err != nil {
		return nil, err
	}
	var rec record.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: detail %s: %v", ErrMalformedResponse, detailURL, err)
	}
	rec.StripBulky()
	return rec, nil
}
