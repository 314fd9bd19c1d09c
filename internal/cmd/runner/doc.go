// Package feedrun exposes a shared Run entrypoint used by the CLI to execute
// configured feeds, handling per-feed locking, lifecycle and shutdown.
//
// Example:
//
//	cfg, _ := config.Load("uzmanposta.yaml")
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = feedrun.Run(ctx, feedrun.Options{Config: cfg, Parallel: true, MaxWorkers: 4})
package feedrun
