package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Retention removes old period files from a directory, keeping the newest
// keep files as ranked by the timestamp parsed from their names. When
// archiveDir is non-empty, files are zstd-compressed there before removal.
type Retention struct {
	dir        string
	pattern    string
	keep       int
	archiveDir string
}

// NewRetention builds a Retention for files produced under dir with the given
// name pattern. keep <= 0 disables cleanup.
func NewRetention(dir, pattern string, keep int, archiveDir string) *Retention {
	return &Retention{dir: dir, pattern: pattern, keep: keep, archiveDir: archiveDir}
}

type agedFile struct {
	path string
	at   time.Time
}

// Cleanup deletes (or archives, then deletes) everything past the newest keep
// files. Patterns without date tokens name a single stable file and are left
// alone. Returns the number of files removed.
func (r *Retention) Cleanup() (int, error) {
	if r.keep <= 0 || !HasDateTokens(r.pattern) {
		return 0, nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var aged []agedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		at, ok := ParseNameTime(r.pattern, e.Name())
		if !ok {
			continue
		}
		aged = append(aged, agedFile{path: filepath.Join(r.dir, e.Name()), at: at})
	}
	if len(aged) <= r.keep {
		return 0, nil
	}
	sort.Slice(aged, func(i, j int) bool { return aged[i].at.After(aged[j].at) })

	removed := 0
	for _, f := range aged[r.keep:] {
		if r.archiveDir != "" {
			if err := archiveZstd(f.path, r.archiveDir); err != nil {
				return removed, fmt.Errorf("archive %s: %w", f.path, err)
			}
		}
		if err := os.Remove(f.path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func archiveZstd(src, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dst := filepath.Join(dstDir, filepath.Base(src)+".zst")
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
