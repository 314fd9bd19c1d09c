package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ErrCorrupt indicates the position file exists but does not hold a parseable
// integer timestamp. Callers treat this as "use the configured fallback start
// time" after logging, never as fatal.
var ErrCorrupt = errors.New("corrupt checkpoint")

// Store persists a single Unix-timestamp position with atomic replace
// semantics. One Store owns one position file.
type Store struct {
	path string

	mu   sync.Mutex
	last int64 // highest value saved this process lifetime
}

// NewStore creates a Store bound to the given position file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the position file path.
func (s *Store) Path() string { return s.path }

// Load reads the saved position. Returns (0, false, nil) if no checkpoint
// exists yet, or ErrCorrupt if the stored value cannot be parsed.
func (s *Store) Load() (int64, bool, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrCorrupt, strings.TrimSpace(string(b)))
	}
	return ts, true, nil
}

// Save writes ts via a durable replace: full content to a temporary path,
// flush and force to stable storage, then atomic rename over the target. A
// crash mid-write leaves the previous, valid value intact. Values lower than
// the highest saved this process lifetime are ignored so the checkpoint only
// moves forward.
func (s *Store) Save(ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts < s.last {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("checkpoint dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("checkpoint tmp: %w", err)
	}
	if _, err := f.WriteString(strconv.FormatInt(ts, 10)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("checkpoint write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("checkpoint sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("checkpoint close: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("checkpoint rename: %w", err)
	}
	s.last = ts
	return nil
}
