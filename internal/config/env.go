package config

import (
	"os"
	"strconv"
)

// FromEnv overlays UZMANPOSTA_* environment variables onto cfg. Feed-level
// overrides apply to every feed: they exist so a key can be kept out of the
// config file, not for per-feed tuning.
func FromEnv(cfg *Config) {
	if v := os.Getenv("UZMANPOSTA_BASE_DIR"); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv("UZMANPOSTA_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("UZMANPOSTA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("UZMANPOSTA_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	apiKey := os.Getenv("UZMANPOSTA_API_KEY")
	verbose, hasVerbose := parseBoolEnv("UZMANPOSTA_VERBOSE")
	if apiKey == "" && !hasVerbose {
		return
	}
	for name, f := range cfg.Feeds {
		if apiKey != "" {
			f.APIKey = apiKey
		}
		if hasVerbose {
			f.Verbose = verbose
		}
		cfg.Feeds[name] = f
	}
}

func parseBoolEnv(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
