package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkdemir/uzmanposta/internal/record"
	"github.com/mkdemir/uzmanposta/internal/retry"
	"github.com/mkdemir/uzmanposta/pkg/log"
)

// nopOutput discards log entries in tests.
type nopOutput struct{}

func (nopOutput) Write(*log.Entry, []byte) error { return nil }
func (nopOutput) Close() error                   { return nil }

func testLogger() log.Logger {
	return log.NewLogger(log.WithOutput(nopOutput{}))
}

// fakeClient implements Client against in-memory behavior.
type fakeClient struct {
	mu        sync.Mutex
	base      string
	listFn    func(start, end int64) ([]record.Record, error)
	detailFn  func(ref record.DetailRef) (record.Record, error)
	listCalls []window
}

func (c *fakeClient) List(_ context.Context, start, end int64) ([]record.Record, error) {
	c.mu.Lock()
	c.listCalls = append(c.listCalls, window{start: start, end: end})
	c.mu.Unlock()
	return c.listFn(start, end)
}

func (c *fakeClient) Detail(_ context.Context, ref record.DetailRef) (record.Record, error) {
	return c.detailFn(ref)
}

func (c *fakeClient) DetailURL(ref record.DetailRef) string {
	return fmt.Sprintf("%s/%s?time=%d", c.base, ref.QueueID, ref.Time)
}

func (c *fakeClient) BaseURL() string { return c.base }

func newEnricher(c Client, parallel int) *enricher {
	return &enricher{
		client:   c,
		parallel: parallel,
		logger:   testLogger(),
		policy: func(url string) retry.Policy {
			return detailPolicy(1, time.Millisecond, url, nil)
		},
	}
}

func TestEnrichPreservesSlotOrder(t *testing.T) {
	const total = 120
	refs := make([]record.DetailRef, total)
	for i := range refs {
		refs[i] = record.DetailRef{QueueID: fmt.Sprintf("q%03d", i), Time: int64(i)}
	}
	client := &fakeClient{
		base: "https://api.test/logs/mail",
		detailFn: func(ref record.DetailRef) (record.Record, error) {
			// Earlier slots finish last so completion order inverts
			// submission order.
			time.Sleep(time.Duration(total-int(ref.Time)) * 10 * time.Microsecond)
			return record.Record{"queue_id": ref.QueueID}, nil
		},
	}

	details, err := newEnricher(client, 4).enrich(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, details, total)
	for i, d := range details {
		require.Equal(t, refs[i].QueueID, d["queue_id"], "slot %d", i)
	}
}

func TestEnrichFailureAbortsPage(t *testing.T) {
	boom := errors.New("detail exploded")
	refs := []record.DetailRef{
		{QueueID: "ok", Time: 1},
		{QueueID: "bad", Time: 2},
		{QueueID: "ok2", Time: 3},
	}
	client := &fakeClient{
		base: "https://api.test/logs/mail",
		detailFn: func(ref record.DetailRef) (record.Record, error) {
			if ref.QueueID == "bad" {
				return nil, boom
			}
			return record.Record{"queue_id": ref.QueueID}, nil
		},
	}

	_, err := newEnricher(client, 2).enrich(context.Background(), refs)
	require.Error(t, err)
	require.ErrorIs(t, err, retry.ErrRetrievalFailed)
}

func TestEnrichEmptyAndCanceled(t *testing.T) {
	client := &fakeClient{base: "https://api.test"}
	details, err := newEnricher(client, 2).enrich(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, details)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newEnricher(client, 2).enrich(ctx, []record.DetailRef{{QueueID: "q", Time: 1}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildPageReverseScan(t *testing.T) {
	// Listing order is newest-first; the sequence must be chronological.
	recs := []record.Record{
		{"queue_id": "new", "recipients": []interface{}{map[string]interface{}{"time": int64(30)}}},
		{"time": int64(20)}, // no detail ref, passes through
		{"queue_id": "old", "recipients": []interface{}{map[string]interface{}{"time": int64(10)}}},
	}
	p := buildPage(recs, record.CategoryMail)
	require.Len(t, p.sequence, 3)
	require.Len(t, p.refs, 2)

	// Oldest first: the job for "old", then the plain record, then "new".
	require.Equal(t, "old", p.refs[p.sequence[0].job].QueueID)
	require.Equal(t, slotJob, p.sequence[1].job)
	require.Equal(t, "new", p.refs[p.sequence[2].job].QueueID)
}

func TestBuildPageNonMailNeverFetchesDetails(t *testing.T) {
	recs := []record.Record{
		{"queue_id": "x", "recipients": []interface{}{map[string]interface{}{"time": int64(5)}}},
	}
	p := buildPage(recs, record.CategoryAuthentication)
	require.Empty(t, p.refs)
	require.Len(t, p.sequence, 1)
	require.NotNil(t, p.sequence[0].rec)
}
