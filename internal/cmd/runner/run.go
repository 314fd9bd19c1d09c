package feedrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mkdemir/uzmanposta/internal/api"
	"github.com/mkdemir/uzmanposta/internal/checkpoint"
	cfgpkg "github.com/mkdemir/uzmanposta/internal/config"
	"github.com/mkdemir/uzmanposta/internal/engine"
	"github.com/mkdemir/uzmanposta/internal/filter"
	"github.com/mkdemir/uzmanposta/internal/lockfile"
	"github.com/mkdemir/uzmanposta/internal/metrics"
	"github.com/mkdemir/uzmanposta/internal/record"
	"github.com/mkdemir/uzmanposta/internal/sink"
	logpkg "github.com/mkdemir/uzmanposta/pkg/log"
)

// Options selects which feeds run and how.
type Options struct {
	Config cfgpkg.Config

	// Feeds are the names to run; empty means every configured feed.
	Feeds []string

	// Parallel runs feeds concurrently, bounded by MaxWorkers.
	Parallel   bool
	MaxWorkers int

	// Logger is the process logger; built from Config.Log when nil.
	Logger logpkg.Logger
}

// Run executes the selected feeds and blocks until they finish or ctx is
// cancelled. A feed that cannot start (held lock) is skipped, not failed;
// feed errors do not stop the other feeds.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers that
	// pass a plain context still get prompt shutdown.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logpkg.ApplyConfig(&opts.Config.Log)
		if err != nil {
			logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
		}
	}

	names := opts.Feeds
	if len(names) == 0 {
		names = opts.Config.FeedNames()
	}
	for _, n := range names {
		if _, ok := opts.Config.Feeds[n]; !ok {
			return fmt.Errorf("unknown feed %q", n)
		}
	}

	logger.Info("starting harvest",
		logpkg.Int("feeds", len(names)),
		logpkg.Bool("parallel", opts.Parallel))

	var (
		mu   sync.Mutex
		errs []error
	)
	runOne := func(name string) {
		if err := runFeed(sctx, &opts.Config, name, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("feed failed", logpkg.Str("feed", name), logpkg.Err(err))
			mu.Lock()
			errs = append(errs, fmt.Errorf("feed %s: %w", name, err))
			mu.Unlock()
		}
	}

	if opts.Parallel && len(names) > 1 {
		workers := opts.MaxWorkers
		if workers < 1 {
			workers = len(names)
		}
		// A failed feed must not cancel its siblings, so no group context.
		var g errgroup.Group
		g.SetLimit(workers)
		for _, name := range names {
			name := name
			g.Go(func() error {
				runOne(name)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, name := range names {
			if sctx.Err() != nil {
				break
			}
			runOne(name)
		}
	}

	logger.Info("harvest finished",
		logpkg.Int("feeds", len(names)),
		logpkg.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// runFeed executes one feed end to end: lock, engine run, retention, unlock.
func runFeed(ctx context.Context, cfg *cfgpkg.Config, name string, procLogger logpkg.Logger) error {
	feed := cfg.Feeds[name]
	paths := cfg.ResolvePaths(name, feed)

	lock, err := lockfile.Acquire(paths.Lock)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			procLogger.Warn("another instance holds the lock, skipping feed",
				logpkg.Str("feed", name), logpkg.Str("lock", paths.Lock))
			return nil
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Release()

	logger, msgOut := feedLogger(cfg.Log, paths, feed)
	defer msgOut.Close()
	logger = logger.With(logpkg.Str("feed", name))

	flt, err := filter.Compile(feed.Filter)
	if err != nil {
		return fmt.Errorf("compile filter: %w", err)
	}

	m := metrics.New()
	client := api.New(api.Options{
		BaseURL:       feed.URL,
		APIKey:        feed.APIKey,
		Domain:        feed.Domain,
		LogType:       feed.Type,
		Category:      record.Category(feed.Category),
		ListTimeout:   feed.ListTimeoutDur(),
		DetailTimeout: feed.DetailTimeoutDur(),
		Recorder:      m,
	})

	eng := engine.New(engine.Options{
		Feed:          name,
		Category:      record.Category(feed.Category),
		Client:        client,
		Checkpoint:    checkpoint.NewStore(paths.Position),
		Sink:          sink.NewWriter(paths.LogDir, paths.OutputPattern),
		Errors:        sink.NewErrorLog(paths.LogDir, paths.ErrorPattern, feed.APIKey, feed.Domain, feed.Type),
		Heartbeat:     sink.NewHeartbeat(paths.Heartbeat, uuid.NewString()),
		Metrics:       m,
		Filter:        flt,
		Logger:        logger,
		StartTime:     feed.StartTime,
		SplitInterval: int64(feed.SplitInterval),
		MaxTimeGap:    int64(feed.MaxTimeGap),
		PageCap:       feed.PageCap,
		ListRetries:   feed.ListRetries,
		ListSleep:     feed.ListSleepDur(),
		DetailRetries: feed.DetailRetries,
		DetailSleep:   feed.DetailSleepDur(),
		FlushSize:     feed.FlushSize,
		Parallel:      feed.MaxParallel,
	})

	runErr := eng.Run(ctx)

	// Housekeeping runs even after a failed pass; aged files are aged either
	// way.
	for _, r := range []*sink.Retention{
		sink.NewRetention(paths.LogDir, feed.MessageFileName, feed.MessageRetention, paths.Archive),
		sink.NewRetention(paths.LogDir, feed.ErrorFileName, feed.ErrorRetention, paths.Archive),
	} {
		if removed, err := r.Cleanup(); err != nil {
			logger.Warn("retention cleanup failed", logpkg.Err(err))
		} else if removed > 0 {
			logger.Info("retention cleanup removed aged files", logpkg.Int("removed", removed))
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("feed complete",
		logpkg.Int64("records", m.Processed()),
		logpkg.Int64("api_calls", m.Calls()),
		logpkg.Dur("elapsed", m.Elapsed()))
	return nil
}

// feedLogger builds the per-feed logger: console plus the feed's rolling
// message-log file. Verbose feeds log at debug. The returned file output must
// be closed when the feed finishes; the logger itself holds no other
// per-feed state.
func feedLogger(cfg logpkg.Config, paths cfgpkg.Paths, feed cfgpkg.Feed) (logpkg.Logger, *logpkg.FileOutput) {
	level := logpkg.InfoLevel
	if l, err := logpkg.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		level = l
	}
	if feed.Verbose {
		level = logpkg.DebugLevel
	}

	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if cfg.Format == "json" {
		formatter = &logpkg.JSONFormatter{}
	}

	msgPath := sink.ResolveName(feed.MessageFileName, time.Now())
	if !filepath.IsAbs(msgPath) {
		msgPath = filepath.Join(paths.LogDir, msgPath)
	}

	msgOut := logpkg.NewFileOutput(msgPath)
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
		logpkg.WithOutput(msgOut),
	)
	return logger, msgOut
}
