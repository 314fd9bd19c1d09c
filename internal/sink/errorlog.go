package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MaskKey masks a credential for safe logging, showing only the first and
// last 4 characters.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// ErrorEvent is one line of the error-event stream.
type ErrorEvent struct {
	Time       int64   `json:"time"`
	Error      string  `json:"error"`
	APIKey     string  `json:"api_key"`
	Domain     string  `json:"domain"`
	Type       string  `json:"type"`
	Request    string  `json:"request,omitempty"`
	DurationMs float64 `json:"duration_ms,omitempty"`
}

// ErrorLog appends structured error events to the per-period error file.
type ErrorLog struct {
	dir     string
	pattern string
	masked  string
	domain  string
	logType string
	now     func() time.Time
}

// NewErrorLog creates an ErrorLog. The api key is masked once at
// construction; the raw key never reaches disk.
func NewErrorLog(dir, pattern, apiKey, domain, logType string) *ErrorLog {
	return &ErrorLog{
		dir:     dir,
		pattern: pattern,
		masked:  MaskKey(apiKey),
		domain:  domain,
		logType: logType,
		now:     time.Now,
	}
}

// Log appends one error event. requestURL and durationMs are optional (empty
// string / zero omit the fields). Failures here must never mask the original
// error, so Log returns nothing; a write failure falls back to stderr.
func (e *ErrorLog) Log(errText, requestURL string, durationMs float64) {
	now := e.now()
	ev := ErrorEvent{
		Time:       now.Unix(),
		Error:      errText,
		APIKey:     e.masked,
		Domain:     e.domain,
		Type:       e.logType,
		Request:    requestURL,
		DurationMs: durationMs,
	}
	line, err := json.Marshal(ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error-log marshal: %v (original: %s)\n", err, errText)
		return
	}

	path := ResolveName(e.pattern, now)
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.dir, path)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "error-log dir: %v (original: %s)\n", err, errText)
			return
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error-log open: %v (original: %s)\n", err, errText)
		return
	}
	defer f.Close()
	f.Write(append(line, '\n'))
}
