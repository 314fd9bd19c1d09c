package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkdemir/uzmanposta/internal/record"
	"github.com/mkdemir/uzmanposta/internal/retry"
	"github.com/mkdemir/uzmanposta/pkg/log"
)

// slotJob marks a sequence slot whose content comes from a detail fetch.
const slotJob = -1

// slot is one position in a page's chronological processing sequence. Either
// rec is set (plain listing entry) or job indexes into the page's detail refs.
type slot struct {
	rec record.Record
	job int
}

// page is one listing response prepared for in-order processing. The listing
// delivers newest-first; the sequence is built by a reverse scan so emission
// is chronological.
type page struct {
	sequence []slot
	refs     []record.DetailRef
}

// buildPage prepares the processing sequence for one listing response. Mail
// entries with a usable detail reference become detail jobs; everything else
// passes through as-is.
func buildPage(recs []record.Record, cat record.Category) page {
	var p page
	p.sequence = make([]slot, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		if cat == record.CategoryMail {
			if ref, ok := rec.DetailRef(); ok {
				p.sequence = append(p.sequence, slot{job: len(p.refs)})
				p.refs = append(p.refs, ref)
				continue
			}
		}
		p.sequence = append(p.sequence, slot{rec: rec, job: slotJob})
	}
	return p
}

// enricher fetches detail records for a page's refs with a bounded worker
// pool, preserving slot order via index write-back.
type enricher struct {
	client   Client
	parallel int
	policy   func(url string) retry.Policy
	logger   log.Logger
}

// subBatchSize keeps the pool fed without queueing an entire page at once.
func (e *enricher) subBatchSize() int {
	n := e.parallel * 5
	if n < 50 {
		n = 50
	}
	return n
}

// enrich resolves every detail ref into its full record. Results land at the
// ref's own index regardless of completion order. Any job failure aborts the
// page; the caller persists its best-known position and propagates.
func (e *enricher) enrich(ctx context.Context, refs []record.DetailRef) ([]record.Record, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	details := make([]record.Record, len(refs))
	total := len(refs)
	batch := e.subBatchSize()

	e.logger.Info("fetching detail records in parallel sub-batches",
		log.Int("jobs", total), log.Int("parallel", e.parallel))

	for i := 0; i < total; i += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := i + batch
		if hi > total {
			hi = total
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.parallel)
		for idx := i; idx < hi; idx++ {
			idx := idx
			g.Go(func() error {
				ref := refs[idx]
				pol := e.policy(e.client.DetailURL(ref))
				return pol.Do(gctx, func(ctx context.Context) error {
					rec, err := e.client.Detail(ctx, ref)
					if err != nil {
						return err
					}
					details[idx] = rec
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("detail fetch: %w", err)
		}

		done := hi
		e.logger.Info("detail progress",
			log.Int("completed", done),
			log.Int("total", total),
			log.Str("percent", fmt.Sprintf("%.1f%%", float64(done)/float64(total)*100)))
	}
	return details, nil
}

// detailPolicy builds the retry policy for one detail URL.
func detailPolicy(maxAttempts int, baseSleep time.Duration, url string, onRetry func(retry.Attempt, string)) retry.Policy {
	return retry.Policy{
		MaxAttempts: maxAttempts,
		BaseSleep:   baseSleep,
		URL:         url,
		OnRetry: func(a retry.Attempt) {
			if onRetry != nil {
				onRetry(a, url)
			}
		},
	}
}
