package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkdemir/uzmanposta/internal/checkpoint"
	"github.com/mkdemir/uzmanposta/internal/filter"
	"github.com/mkdemir/uzmanposta/internal/metrics"
	"github.com/mkdemir/uzmanposta/internal/record"
	"github.com/mkdemir/uzmanposta/internal/retry"
	"github.com/mkdemir/uzmanposta/internal/sink"
	"github.com/mkdemir/uzmanposta/pkg/log"
)

// Lookback limits imposed by the API.
const (
	quarantineLookback = 7 * 24 * time.Hour
	maxSliceWidth      = int64(14 * 24 * 60 * 60)
)

// Client is the API surface the engine drives. *api.Client satisfies it.
type Client interface {
	List(ctx context.Context, start, end int64) ([]record.Record, error)
	Detail(ctx context.Context, ref record.DetailRef) (record.Record, error)
	DetailURL(ref record.DetailRef) string
	BaseURL() string
}

// Processor receives flushed record batches. *sink.Writer satisfies it.
type Processor interface {
	Process(records []record.Record) error
}

// ErrorSink receives structured error events. *sink.ErrorLog satisfies it.
type ErrorSink interface {
	Log(errText, requestURL string, durationMs float64)
}

// Options wires one feed's engine.
type Options struct {
	Feed     string
	Category record.Category

	Client     Client
	Checkpoint *checkpoint.Store
	Sink       Processor
	Errors     ErrorSink
	Heartbeat  *sink.Heartbeat
	Metrics    *metrics.Metrics
	Filter     filter.Filter
	Logger     log.Logger

	// StartTime is the fallback lower bound when no checkpoint exists.
	StartTime int64

	// Window shaping in seconds.
	SplitInterval int64
	MaxTimeGap    int64
	PageCap       int

	// Retry behavior.
	ListRetries   int
	ListSleep     time.Duration
	DetailRetries int
	DetailSleep   time.Duration

	// Buffering.
	FlushSize int
	Parallel  int

	// Now is an injection point for tests; defaults to time.Now.
	Now func() time.Time
}

// Engine drives one feed through the full retrieval pipeline: checkpoint
// resume, coarse slicing, adaptive window splitting, detail enrichment,
// buffered flushing and checkpoint advancement.
type Engine struct {
	opts   Options
	logger log.Logger
	enr    *enricher

	// lastProcessed tracks the newest record timestamp handed to the buffer;
	// durable trails it and advances only once those records are flushed. The
	// checkpoint persists durable, never lastProcessed, so a failed flush can
	// never strand records behind the resume position.
	lastProcessed int64
	durable       int64
}

// New creates an Engine. Logger, Metrics and Checkpoint are required;
// Heartbeat, Errors and Filter may be zero-valued.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.FlushSize < 1 {
		opts.FlushSize = 1
	}
	logger := opts.Logger.With(log.Str("feed", opts.Feed))
	e := &Engine{opts: opts, logger: logger}
	e.enr = &enricher{
		client:   opts.Client,
		parallel: opts.Parallel,
		logger:   logger.WithComponent("enricher"),
		policy: func(url string) retry.Policy {
			return detailPolicy(opts.DetailRetries, opts.DetailSleep, url, e.onRetry)
		},
	}
	return e
}

// onRetry reports one failed attempt to the error stream and metrics.
func (e *Engine) onRetry(a retry.Attempt, url string) {
	e.opts.Metrics.IncErrors(1)
	msg := fmt.Sprintf("%s for %s (attempt %d): %v", a.Label, url, a.Number, a.Err)
	if e.opts.Errors != nil {
		e.opts.Errors.Log(msg, url, float64(a.Elapsed.Microseconds())/1000.0)
	}
	e.logger.Warn("attempt failed",
		log.Str("label", a.Label), log.Int("attempt", a.Number),
		log.Dur("wait", a.Wait), log.Err(a.Err))
}

// heartbeat is a best-effort status write; failures are logged, never fatal.
func (e *Engine) heartbeat(status string) {
	if e.opts.Heartbeat == nil {
		return
	}
	if err := e.opts.Heartbeat.Update(status, e.opts.Metrics.Snapshot()); err != nil {
		e.logger.Warn("heartbeat update failed", log.Err(err))
	}
}

// Run executes the feed's full retrieval pass from the resume position to
// now. The best-known checkpoint is persisted before any error returns, so a
// subsequent run resumes instead of refetching.
func (e *Engine) Run(ctx context.Context) error {
	e.heartbeat(sink.StatusRunning)
	err := e.run(ctx)
	switch {
	case err == nil:
		e.heartbeat(sink.StatusCompleted)
	case errors.Is(err, context.Canceled):
		// Interrupted, not broken: the next run picks up from the
		// checkpoint.
		e.heartbeat(sink.StatusCompleted)
	default:
		if e.opts.Errors != nil {
			e.opts.Errors.Log(fmt.Sprintf("run failed: %v", err), "", 0)
		}
		e.heartbeat(sink.StatusError)
	}
	return err
}

func (e *Engine) run(ctx context.Context) error {
	now := e.opts.Now().Unix()

	start, err := e.resumePosition()
	if err != nil {
		return err
	}

	if e.opts.Category == record.CategoryQuarantine {
		oldest := now - int64(quarantineLookback/time.Second)
		if start < oldest {
			e.logger.Warn("quarantine lookback limit reached, clamping start",
				log.Int64("start", start), log.Int64("clamped", oldest))
			start = oldest
		}
	}

	if start >= now {
		e.logger.Info("nothing to retrieve", log.Int64("start", start), log.Int64("end", now))
		return nil
	}

	sliceWidth := e.opts.MaxTimeGap
	if sliceWidth <= 0 || sliceWidth > maxSliceWidth {
		sliceWidth = maxSliceWidth
	}

	e.logger.Info("starting retrieval",
		log.Str("category", string(e.opts.Category)),
		log.Int64("start", start), log.Int64("end", now),
		log.Int64("slice_width", sliceWidth))

	e.lastProcessed = start
	e.durable = start
	for cur := start; cur < now; {
		next := cur + sliceWidth
		if next > now {
			next = now
		}
		if err := e.harvestSlice(ctx, cur, next); err != nil {
			return err
		}
		e.heartbeat(sink.StatusRunning)
		cur = next
	}

	e.logger.Info("retrieval complete",
		log.Int64("records", e.opts.Metrics.Processed()),
		log.Int64("api_calls", e.opts.Metrics.Calls()))
	return nil
}

// resumePosition loads the checkpoint, falling back to the configured start
// when it is absent or corrupt.
func (e *Engine) resumePosition() (int64, error) {
	pos, ok, err := e.opts.Checkpoint.Load()
	if err != nil {
		if errors.Is(err, checkpoint.ErrCorrupt) {
			e.logger.Warn("checkpoint unreadable, falling back to configured start",
				log.Str("path", e.opts.Checkpoint.Path()), log.Err(err))
			return e.opts.StartTime, nil
		}
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		e.logger.Info("no checkpoint, starting from configured start",
			log.Int64("start", e.opts.StartTime))
		return e.opts.StartTime, nil
	}
	e.logger.Info("resuming from checkpoint", log.Int64("position", pos))
	return pos, nil
}

// harvestSlice drains one coarse slice through the window stack. Every flush
// and completed window advances the checkpoint; a fatal error flushes what it
// can and persists only the durably written position before propagating.
func (e *Engine) harvestSlice(ctx context.Context, start, end int64) error {
	stack := seedWindows(start, end, e.opts.SplitInterval)
	var buffer []record.Record

	fail := func(err error) error {
		if ferr := e.flush(buffer); ferr != nil {
			e.logger.Error("flush on failure", log.Err(ferr))
		} else {
			e.durable = e.lastProcessed
		}
		e.saveCheckpoint()
		return err
	}

	for !stack.empty() {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		w, _ := stack.pop()

		recs, err := e.listWindow(ctx, w)
		if err != nil {
			return fail(err)
		}

		// A saturated page means the window holds more than one page; split
		// and retry the halves. A one-second window cannot split further, so
		// it proceeds and the overflow is lost.
		if len(recs) >= e.opts.PageCap {
			if w.width() > 1 {
				lo, hi := stack.split(w)
				e.logger.Info("page saturated, splitting window",
					log.Int64("start", w.start), log.Int64("end", w.end),
					log.Int64("mid", lo.end), log.Int64("hi_end", hi.end))
				continue
			}
			e.logger.Warn("page saturated on a 1s window, results may be truncated",
				log.Int64("start", w.start), log.Int("count", len(recs)))
		}

		p := buildPage(recs, e.opts.Category)
		details, err := e.enr.enrich(ctx, p.refs)
		if err != nil {
			return fail(err)
		}

		for _, s := range p.sequence {
			rec := s.rec
			if s.job != slotJob {
				rec = details[s.job]
			}
			if rec == nil {
				continue
			}
			if t, ok := rec.Time(e.opts.Category); ok {
				e.lastProcessed = t
			}
			if !e.opts.Filter.Include(rec, e.opts.Category) {
				continue
			}
			buffer = append(buffer, rec)
			e.opts.Metrics.IncProcessed(1)

			if len(buffer) >= e.opts.FlushSize {
				if err := e.flush(buffer); err != nil {
					return fail(err)
				}
				buffer = buffer[:0]
				e.durable = e.lastProcessed
				e.saveCheckpoint()
			}
		}

		// Window done: everything in it is flushed and the position jumps to
		// its end, not just the last record's own timestamp.
		if err := e.flush(buffer); err != nil {
			return fail(err)
		}
		buffer = buffer[:0]
		e.lastProcessed = w.end
		e.durable = w.end
		e.saveCheckpoint()
	}
	return nil
}

// listWindow fetches one listing page under the list retry policy.
func (e *Engine) listWindow(ctx context.Context, w window) ([]record.Record, error) {
	var recs []record.Record
	pol := retry.Policy{
		MaxAttempts: e.opts.ListRetries,
		BaseSleep:   e.opts.ListSleep,
		URL:         e.opts.Client.BaseURL(),
		OnRetry: func(a retry.Attempt) {
			e.onRetry(a, e.opts.Client.BaseURL())
		},
	}
	err := pol.Do(ctx, func(ctx context.Context) error {
		var lerr error
		recs, lerr = e.opts.Client.List(ctx, w.start, w.end)
		return lerr
	})
	if err != nil {
		return nil, fmt.Errorf("list [%d, %d): %w", w.start, w.end, err)
	}
	e.logger.Debug("listed window",
		log.Int64("start", w.start), log.Int64("end", w.end), log.Int("count", len(recs)))
	return recs, nil
}

func (e *Engine) flush(buffer []record.Record) error {
	if len(buffer) == 0 {
		return nil
	}
	if err := e.opts.Sink.Process(buffer); err != nil {
		return fmt.Errorf("flush %d records: %w", len(buffer), err)
	}
	return nil
}

// saveCheckpoint persists the last durable position; the store's monotonic
// guard makes stale writes harmless.
func (e *Engine) saveCheckpoint() {
	if err := e.opts.Checkpoint.Save(e.durable); err != nil {
		e.logger.Error("checkpoint save failed",
			log.Int64("position", e.durable), log.Err(err))
	}
}
