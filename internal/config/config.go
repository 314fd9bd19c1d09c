package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mkdemir/uzmanposta/pkg/log"
)

// Category-default API endpoints, used when a feed has no explicit url.
var defaultURLs = map[string]string{
	"mail":           "https://yenipanel-api.uzmanposta.com/api/v2/logs/mail",
	"quarantine":     "https://yenipanel-api.uzmanposta.com/api/v2/quarantines",
	"authentication": "https://yenipanel.uzmanposta.com/api/v2/logs/authentication",
}

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// BaseDir anchors relative output paths. Defaults to the working
	// directory.
	BaseDir string `yaml:"base_dir"`
	// StateDir holds position and lock files. Defaults to BaseDir/state.
	StateDir string `yaml:"state_dir"`
	// URL overrides the mail-category default endpoint for feeds that do
	// not set their own (kept for older single-feed configs).
	URL string `yaml:"url"`

	Log log.Config `yaml:"log"`

	Feeds map[string]Feed `yaml:"feeds" validate:"required,min=1,dive"`
}

// Feed configures one retrieval stream against one API endpoint.
type Feed struct {
	APIKey   string `yaml:"api_key" validate:"required"`
	URL      string `yaml:"url" validate:"omitempty,url"`
	Domain   string `yaml:"domain"`
	Type     string `yaml:"type"`
	Category string `yaml:"category" validate:"oneof=mail quarantine authentication"`

	// StartTime is the unix timestamp to begin from when no position file
	// exists yet. Zero means "one minute ago" at load time.
	StartTime int64 `yaml:"start_time" validate:"gte=0"`

	// Window shaping, all in seconds.
	SplitInterval int `yaml:"split_interval" validate:"gte=1"`
	MaxTimeGap    int `yaml:"max_time_gap" validate:"gte=1"`
	PageCap       int `yaml:"max_records_per_page" validate:"gte=1"`

	// HTTP behavior, timeouts and sleeps in seconds.
	ListTimeout   int `yaml:"list_timeout" validate:"gte=1"`
	DetailTimeout int `yaml:"detail_timeout" validate:"gte=1"`
	ListRetries   int `yaml:"list_retries" validate:"gte=1"`
	ListSleep     int `yaml:"list_sleep_time" validate:"gte=1"`
	DetailRetries int `yaml:"detail_retries" validate:"gte=1"`
	DetailSleep   int `yaml:"detail_sleep_time" validate:"gte=1"`
	MaxParallel   int `yaml:"max_parallel_details" validate:"gte=1"`
	FlushSize     int `yaml:"flush_size" validate:"gte=1"`

	// Filter is an optional CEL expression; records it rejects are dropped
	// before buffering.
	Filter string `yaml:"filter"`

	// Output layout.
	LogDirectory     string `yaml:"log_directory"`
	LogFileName      string `yaml:"log_file_name_format"`
	ErrorFileName    string `yaml:"error_log_file_name"`
	ErrorRetention   int    `yaml:"error_log_retention_count" validate:"gte=0"`
	MessageFileName  string `yaml:"message_log_file_name"`
	MessageRetention int    `yaml:"message_log_retention_count" validate:"gte=0"`
	ArchiveDirectory string `yaml:"archive_directory"`

	// State files. "{feed}" expands to the feed name; empty values derive
	// from the feed name under StateDir.
	PositionFile  string `yaml:"position_file"`
	LockFile      string `yaml:"lock_file_path"`
	HeartbeatFile string `yaml:"heartbeat_file"`

	Verbose bool `yaml:"verbose"`
}

// DefaultFeed returns the per-feed baseline. Named feeds overlay on top of it.
func DefaultFeed() Feed {
	return Feed{
		Type:             "outgoinglog",
		Category:         "mail",
		SplitInterval:    300,
		MaxTimeGap:       3600,
		PageCap:          1000,
		ListTimeout:      300,
		DetailTimeout:    120,
		ListRetries:      10,
		ListSleep:        2,
		DetailRetries:    10,
		DetailSleep:      2,
		MaxParallel:      2,
		FlushSize:        500,
		LogDirectory:     "./output",
		LogFileName:      "{domain}_{type}_%Y-%m-%d_%H.log",
		ErrorFileName:    "errors_%Y-%m-%d_%H.log",
		ErrorRetention:   2,
		MessageFileName:  "messages_%Y-%m-%d_%H.log",
		MessageRetention: 2,
		Verbose:          true,
	}
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		BaseDir:  ".",
		StateDir: "",
		Log:      log.Config{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML file and overlays feed defaults.
// Feeds are validated; callers overlay env afterwards via FromEnv.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize fills derived and defaulted values after unmarshal.
func (c *Config) normalize() {
	if c.BaseDir == "" {
		c.BaseDir = "."
	}
	for name, f := range c.Feeds {
		c.Feeds[name] = f.withDefaults(c.URL)
	}
}

// withDefaults overlays zero-valued fields with the feed baseline and
// resolves the endpoint URL from the category default when unset.
func (f Feed) withDefaults(topURL string) Feed {
	d := DefaultFeed()
	if f.Type == "" {
		f.Type = d.Type
	}
	if f.Category == "" {
		f.Category = d.Category
	}
	if f.URL == "" {
		f.URL = defaultURLs[f.Category]
		// Older single-feed configs set one url at the top level; it only
		// ever pointed at the mail endpoint.
		if f.Category == "mail" && topURL != "" {
			f.URL = topURL
		}
	}
	if f.StartTime == 0 {
		f.StartTime = time.Now().Unix() - 60
	}
	if f.SplitInterval == 0 {
		f.SplitInterval = d.SplitInterval
	}
	if f.MaxTimeGap == 0 {
		f.MaxTimeGap = d.MaxTimeGap
	}
	if f.PageCap == 0 {
		f.PageCap = d.PageCap
	}
	if f.ListTimeout == 0 {
		f.ListTimeout = d.ListTimeout
	}
	if f.DetailTimeout == 0 {
		f.DetailTimeout = d.DetailTimeout
	}
	if f.ListRetries == 0 {
		f.ListRetries = d.ListRetries
	}
	if f.ListSleep == 0 {
		f.ListSleep = d.ListSleep
	}
	if f.DetailRetries == 0 {
		f.DetailRetries = d.DetailRetries
	}
	if f.DetailSleep == 0 {
		f.DetailSleep = d.DetailSleep
	}
	if f.MaxParallel == 0 {
		f.MaxParallel = d.MaxParallel
	}
	if f.FlushSize == 0 {
		f.FlushSize = d.FlushSize
	}
	if f.LogDirectory == "" {
		f.LogDirectory = d.LogDirectory
	}
	if f.LogFileName == "" {
		f.LogFileName = d.LogFileName
	}
	if f.ErrorFileName == "" {
		f.ErrorFileName = d.ErrorFileName
	}
	if f.ErrorRetention == 0 {
		f.ErrorRetention = d.ErrorRetention
	}
	if f.MessageFileName == "" {
		f.MessageFileName = d.MessageFileName
	}
	if f.MessageRetention == 0 {
		f.MessageRetention = d.MessageRetention
	}
	return f
}

// Validate checks structural constraints on the loaded configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, f := range c.Feeds {
		if f.Category == "mail" && (f.Type == "quarantine" || f.Type == "hold") {
			return fmt.Errorf("feed %s: type %q with category mail; set category to quarantine", name, f.Type)
		}
	}
	return nil
}

// FeedNames returns configured feed names, sorted.
func (c *Config) FeedNames() []string {
	names := make([]string, 0, len(c.Feeds))
	for n := range c.Feeds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Duration accessors for second-valued fields.

func (f Feed) ListTimeoutDur() time.Duration   { return time.Duration(f.ListTimeout) * time.Second }
func (f Feed) DetailTimeoutDur() time.Duration { return time.Duration(f.DetailTimeout) * time.Second }
func (f Feed) ListSleepDur() time.Duration     { return time.Duration(f.ListSleep) * time.Second }
func (f Feed) DetailSleepDur() time.Duration   { return time.Duration(f.DetailSleep) * time.Second }
