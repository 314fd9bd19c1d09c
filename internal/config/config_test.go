package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uzmanposta.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesFeedDefaults(t *testing.T) {
	path := writeConfig(t, `
feeds:
  corp-mail:
    api_key: test-key-0123456789
    domain: example.com
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f, ok := cfg.Feeds["corp-mail"]
	if !ok {
		t.Fatal("feed missing")
	}
	if f.Category != "mail" || f.Type != "outgoinglog" {
		t.Fatalf("category/type defaults: %q/%q", f.Category, f.Type)
	}
	if f.URL != "https://yenipanel-api.uzmanposta.com/api/v2/logs/mail" {
		t.Fatalf("url default: %q", f.URL)
	}
	if f.SplitInterval != 300 || f.MaxTimeGap != 3600 || f.PageCap != 1000 {
		t.Fatalf("window defaults: %d/%d/%d", f.SplitInterval, f.MaxTimeGap, f.PageCap)
	}
	if f.ListRetries != 10 || f.FlushSize != 500 || f.MaxParallel != 2 {
		t.Fatalf("http defaults: %d/%d/%d", f.ListRetries, f.FlushSize, f.MaxParallel)
	}
	if f.ListTimeoutDur() != 300*time.Second || f.DetailTimeoutDur() != 120*time.Second {
		t.Fatalf("timeouts: %v/%v", f.ListTimeoutDur(), f.DetailTimeoutDur())
	}
	// start_time unset means "a minute ago".
	now := time.Now().Unix()
	if f.StartTime < now-120 || f.StartTime > now {
		t.Fatalf("start_time default out of range: %d (now %d)", f.StartTime, now)
	}
}

func TestLoadCategoryURLs(t *testing.T) {
	path := writeConfig(t, `
url: https://mirror.example.com/api/v2/logs/mail
feeds:
  q:
    api_key: test-key-0123456789
    category: quarantine
    type: quarantine
  a:
    api_key: test-key-0123456789
    category: authentication
  m:
    api_key: test-key-0123456789
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Feeds["q"].URL; got != "https://yenipanel-api.uzmanposta.com/api/v2/quarantines" {
		t.Fatalf("quarantine url: %q", got)
	}
	if got := cfg.Feeds["a"].URL; got != "https://yenipanel.uzmanposta.com/api/v2/logs/authentication" {
		t.Fatalf("authentication url: %q", got)
	}
	// Top-level url only redirects mail feeds.
	if got := cfg.Feeds["m"].URL; got != "https://mirror.example.com/api/v2/logs/mail" {
		t.Fatalf("mail url: %q", got)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"no feeds": `base_dir: /tmp`,
		"missing api key": `
feeds:
  broken:
    domain: example.com
`,
		"bad category": `
feeds:
  broken:
    api_key: test-key-0123456789
    category: spam
`,
		"quarantine type under mail": `
feeds:
  broken:
    api_key: test-key-0123456789
    type: quarantine
`,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestFeedNamesSorted(t *testing.T) {
	cfg := Config{Feeds: map[string]Feed{"b": {}, "a": {}, "c": {}}}
	names := cfg.FeedNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Fatalf("names = %v", names)
	}
}

func TestFromEnvOverlay(t *testing.T) {
	cfg := Default()
	cfg.Feeds = map[string]Feed{"one": {APIKey: "file-key"}, "two": {APIKey: "file-key"}}
	t.Setenv("UZMANPOSTA_API_KEY", "env-key-9876543210")
	t.Setenv("UZMANPOSTA_LOG_LEVEL", "debug")
	t.Setenv("UZMANPOSTA_STATE_DIR", "/var/lib/uzmanposta")

	FromEnv(&cfg)
	if cfg.Log.Level != "debug" || cfg.StateDir != "/var/lib/uzmanposta" {
		t.Fatalf("top-level overlay: %+v", cfg)
	}
	for name, f := range cfg.Feeds {
		if f.APIKey != "env-key-9876543210" {
			t.Fatalf("feed %s key not overlaid: %q", name, f.APIKey)
		}
	}
}
