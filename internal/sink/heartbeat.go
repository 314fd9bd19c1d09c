package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Run statuses written to the heartbeat file.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Heartbeat overwrites a small status document each update cycle. It is read
// by external monitoring, never by the engine itself.
type Heartbeat struct {
	path  string
	runID string
	now   func() time.Time
}

// NewHeartbeat creates a Heartbeat writing to path, stamped with runID.
func NewHeartbeat(path, runID string) *Heartbeat {
	return &Heartbeat{path: path, runID: runID, now: time.Now}
}

type heartbeatDoc struct {
	RunID      string                 `json:"run_id"`
	LastUpdate string                 `json:"last_update"`
	Status     string                 `json:"status"`
	Metrics    map[string]interface{} `json:"metrics"`
}

// Update overwrites the heartbeat with the given status and metrics snapshot.
func (h *Heartbeat) Update(status string, snapshot map[string]interface{}) error {
	doc := heartbeatDoc{
		RunID:      h.runID,
		LastUpdate: h.now().Format(time.RFC3339),
		Status:     status,
		Metrics:    snapshot,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(h.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(h.path, b, 0o644)
}
