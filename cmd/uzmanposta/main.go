package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	feedrun "github.com/mkdemir/uzmanposta/internal/cmd/runner"
	cfgpkg "github.com/mkdemir/uzmanposta/internal/config"
	logpkg "github.com/mkdemir/uzmanposta/pkg/log"
)

func main() {
	// .env is optional; real deployments set UZMANPOSTA_* in the unit file.
	_ = godotenv.Load()

	// Respect UZMANPOSTA_LOG_LEVEL for CLI output before config is loaded.
	level := os.Getenv("UZMANPOSTA_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	rootCmd := &cobra.Command{
		Use:   "uzmanposta",
		Short: "Uzman Posta mail-log harvester",
		Long:  "uzmanposta incrementally retrieves mail, quarantine and authentication event logs from the Uzman Posta API into local JSONL files.",
	}
	rootCmd.PersistentFlags().String("config", "uzmanposta.yaml", "path to the configuration file")

	loadConfig := func(cmd *cobra.Command) (cfgpkg.Config, error) {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := cfgpkg.Load(path)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		cfgpkg.FromEnv(&cfg)
		return cfg, nil
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one feed or all configured feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, _ := cmd.Flags().GetString("feed")
			all, _ := cmd.Flags().GetBool("all")
			parallel, _ := cmd.Flags().GetBool("parallel")
			maxWorkers, _ := cmd.Flags().GetInt("max-workers")

			if feed != "" && all {
				return fmt.Errorf("--feed and --all are mutually exclusive")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var feeds []string
			switch {
			case feed != "":
				feeds = []string{feed}
			case all || len(cfg.Feeds) == 1:
				// all configured feeds
			default:
				return fmt.Errorf("multiple feeds configured; pass --feed NAME or --all")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return feedrun.Run(ctx, feedrun.Options{
				Config:     cfg,
				Feeds:      feeds,
				Parallel:   parallel,
				MaxWorkers: maxWorkers,
				Logger:     logger,
			})
		},
	}
	runCmd.Flags().String("feed", "", "run only the named feed")
	runCmd.Flags().Bool("all", false, "run every configured feed")
	runCmd.Flags().Bool("parallel", false, "run feeds concurrently")
	runCmd.Flags().Int("max-workers", 4, "worker bound for --parallel")
	rootCmd.AddCommand(runCmd)

	feedsCmd := &cobra.Command{
		Use:   "feeds",
		Short: "List configured feeds and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			for _, name := range cfg.FeedNames() {
				f := cfg.Feeds[name]
				domain := f.Domain
				if domain == "" {
					domain = "global"
				}
				fmt.Printf("%s\tcategory=%s type=%s domain=%s\n", name, f.Category, f.Type, domain)
			}
			return nil
		},
	}
	rootCmd.AddCommand(feedsCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}
