package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissing(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "feed.pos"))
	ts, ok, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok || ts != 0 {
		t.Fatalf("expected absent checkpoint, got ts=%d ok=%v", ts, ok)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.pos")
	s := NewStore(path)
	if err := s.Save(1700000123); err != nil {
		t.Fatalf("save: %v", err)
	}
	ts, ok, err := s.Load()
	if err != nil || !ok || ts != 1700000123 {
		t.Fatalf("load: ts=%d ok=%v err=%v", ts, ok, err)
	}
	// file holds the bare ASCII integer
	b, _ := os.ReadFile(path)
	if string(b) != "1700000123" {
		t.Fatalf("file content %q", string(b))
	}
}

func TestSaveMonotonic(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "feed.pos"))
	if err := s.Save(200); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(100); err != nil {
		t.Fatalf("save lower: %v", err)
	}
	ts, _, _ := s.Load()
	if ts != 200 {
		t.Fatalf("checkpoint regressed to %d", ts)
	}
	if err := s.Save(300); err != nil {
		t.Fatalf("save higher: %v", err)
	}
	ts, _, _ = s.Load()
	if ts != 300 {
		t.Fatalf("checkpoint did not advance: %d", ts)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.pos")
	if err := os.WriteFile(path, []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStore(path)
	_, _, err := s.Load()
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestTornTempFileIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.pos")
	s := NewStore(path)
	if err := s.Save(500); err != nil {
		t.Fatalf("save: %v", err)
	}
	// simulate a crash that left a torn temp file behind
	if err := os.WriteFile(path+".tmp", []byte("49"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	ts, ok, err := s.Load()
	if err != nil || !ok || ts != 500 {
		t.Fatalf("torn temp leaked into load: ts=%d ok=%v err=%v", ts, ok, err)
	}
}
