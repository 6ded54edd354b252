// Package state persists pipeline progress so an interrupted run can resume
// from the first incomplete step.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Status of a single pipeline step
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StepNames is the canonical execution order
var StepNames = []string{
	"fetch",
	"convert",
	"authorities",
	"download",
	"verify",
	"citecheck",
	"report",
	"analysis",
	"mootqa",
}

// StepDescriptions maps step names to human-readable summaries for status output
var StepDescriptions = map[string]string{
	"fetch":       "Download case filings from CourtListener",
	"convert":     "Convert filing PDFs to text",
	"authorities": "Extract cited authorities from briefs",
	"download":    "Download opinion texts for authorities",
	"verify":      "Verify every authority resolved to a file",
	"citecheck":   "Cite-check briefs against authority texts",
	"report":      "Render the cite-check report",
}

// StepRecord tracks one step's lifecycle. Mutated only through
// Run.Transition, never by step logic.
type StepRecord struct {
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Run is the persisted pipeline state for one project directory
type Run struct {
	RunID string                 `json:"run_id"`
	Steps map[string]*StepRecord `json:"steps"`

	path string // state file location, set by Load
}

// nowFunc is injectable for tests
var nowFunc = time.Now

// Load reconstructs state from the file at path, creating a fresh
// all-pending run if none exists. A step recorded as running is treated as
// recovered state from a crash, never as currently executing.
func Load(path string) (*Run, error) {
	run := &Run{
		RunID: uuid.NewString(),
		Steps: make(map[string]*StepRecord),
		path:  path,
	}
	for _, name := range StepNames {
		run.Steps[name] = &StepRecord{Name: name, Status: StatusPending}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return run, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var stored Run
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", path, err)
	}
	if stored.RunID != "" {
		run.RunID = stored.RunID
	}
	// Unknown step names in the file are ignored; known steps adopt the
	// stored record.
	for name, rec := range stored.Steps {
		if _, known := run.Steps[name]; known && rec != nil {
			rec.Name = name
			run.Steps[name] = rec
		}
	}

	return run, nil
}

// Transition is the only mutator. It moves step to newStatus, stamps
// timestamps, records errMsg for failures, and persists atomically before
// returning. At most one step may be running at a time.
func (r *Run) Transition(step string, newStatus Status, errMsg string) error {
	rec, ok := r.Steps[step]
	if !ok {
		return fmt.Errorf("unknown step: %s", step)
	}

	if newStatus == StatusRunning {
		for name, other := range r.Steps {
			if name != step && other.Status == StatusRunning {
				return fmt.Errorf("step %s is already running; refusing to start %s", name, step)
			}
		}
	}

	now := nowFunc()
	switch newStatus {
	case StatusRunning:
		rec.StartedAt = &now
		rec.EndedAt = nil
		rec.Error = ""
	case StatusCompleted, StatusFailed, StatusSkipped:
		rec.EndedAt = &now
	}
	rec.Status = newStatus
	rec.Error = ""
	if newStatus == StatusFailed {
		rec.Error = errMsg
	}

	return r.save()
}

// FirstIncomplete returns the earliest step whose status is neither
// completed nor skipped, or "" when everything is done.
func (r *Run) FirstIncomplete() string {
	for _, name := range StepNames {
		switch r.Steps[name].Status {
		case StatusCompleted, StatusSkipped:
		default:
			return name
		}
	}
	return ""
}

// Record returns the record for a step
func (r *Run) Record(step string) (*StepRecord, bool) {
	rec, ok := r.Steps[step]
	return rec, ok
}

// save writes the state file atomically: a temp file in the same directory
// is fully written and synced, then renamed over the old file, so a crash
// leaves either the old state or the new one, never a torn write.
func (r *Run) save() error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".briefcheck_state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
