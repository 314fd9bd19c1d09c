package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mkdemir/uzmanposta/internal/record"
)

// Writer appends records to the per-period output file, one JSON object per
// line. The file name is resolved from the configured pattern at each flush,
// so long runs roll naturally into new period files.
type Writer struct {
	dir     string
	pattern string
	now     func() time.Time
}

// NewWriter creates a Writer for the given directory and file-name pattern.
// The pattern may contain strftime-style date directives and may be absolute;
// relative patterns resolve under dir.
func NewWriter(dir, pattern string) *Writer {
	return &Writer{dir: dir, pattern: pattern, now: time.Now}
}

// currentPath resolves the output path for this flush.
func (w *Writer) currentPath() string {
	name := ResolveName(w.pattern, w.now())
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.dir, name)
}

// Process appends the batch to the current period file. The batch is durable
// once Process returns: the file is synced before close so an immediately
// following checkpoint advance never outruns the data.
func (w *Writer) Process(records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	path := w.currentPath()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	enc := json.NewEncoder(f)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync output: %w", err)
	}
	return f.Close()
}
