package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkdemir/uzmanposta/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct{ n atomic.Int64 }

func (c *countingRecorder) RecordCall(time.Duration) { c.n.Add(1) }

func TestListQueryAndAuth(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"time": 5}, {"time": 4}]`))
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	c := New(Options{
		BaseURL:  srv.URL,
		APIKey:   "secret-key",
		Domain:   "acme.com",
		LogType:  "outgoinglog",
		Category: record.CategoryMail,
		Recorder: rec,
	})
	recs, err := c.List(context.Background(), 100, 200)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Contains(t, gotQuery, "starttime=100")
	assert.Contains(t, gotQuery, "endtime=200")
	assert.Contains(t, gotQuery, "type=outgoinglog")
	assert.Contains(t, gotQuery, "domain=acme.com")
	assert.Equal(t, int64(1), rec.n.Load())
}

func TestListAuthenticationOmitsType(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", LogType: "outgoinglog", Category: record.CategoryAuthentication})
	_, err := c.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NotContains(t, gotQuery, "type=")
}

func TestListMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Category: record.CategoryMail})
	_, err := c.List(context.Background(), 1, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestErrorBodyParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":"error","code":"E403","message":"no access","api-version":"v2"}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Category: record.CategoryMail})
	_, err := c.List(context.Background(), 1, 2)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "HTTP 403 (Forbidden)")
	assert.Contains(t, apiErr.Error(), "code: E403")
	assert.Contains(t, apiErr.Error(), "message: no access")
}

func TestErrorBodySnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Category: record.CategoryMail})
	_, err := c.List(context.Background(), 1, 2)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Error(), "Response body: upstream exploded")
}

func TestRateLimitRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Category: record.CategoryMail})
	_, err := c.List(context.Background(), 1, 2)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.RateLimited())
	assert.True(t, apiErr.HasRetryAfter)
	assert.Equal(t, 5*time.Second, apiErr.RetryAfter)
}

func TestRateLimitBadRetryAfterDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "soon")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Category: record.CategoryMail})
	_, err := c.List(context.Background(), 1, 2)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 60*time.Second, apiErr.RetryAfter)
}

func TestDetailStripsBulkyFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q-123", r.URL.Path)
		assert.Equal(t, "77", r.URL.Query().Get("time"))
		w.Write([]byte(`{"queue_id":"q-123","subject":"hi","logs":[1,2],"transactions":[],"filters":{},"emails":["x"]}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Category: record.CategoryMail})
	rec, err := c.Detail(context.Background(), record.DetailRef{QueueID: "q-123", Time: 77})
	require.NoError(t, err)
	assert.Equal(t, "hi", rec["subject"])
	for _, f := range []string{"logs", "transactions", "filters", "emails"} {
		_, ok := rec[f]
		assert.False(t, ok, "field %s should be stripped", f)
	}
}
