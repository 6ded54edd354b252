package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func stateFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), ".briefcheck_state.json")
}

func TestLoad_FreshRun(t *testing.T) {
	run, err := Load(stateFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.RunID == "" {
		t.Error("expected a run ID")
	}
	for _, name := range StepNames {
		rec, ok := run.Record(name)
		if !ok {
			t.Fatalf("missing step %s", name)
		}
		if rec.Status != StatusPending {
			t.Errorf("step %s: expected pending, got %s", name, rec.Status)
		}
	}
}

func TestTransition_PersistsAndReloads(t *testing.T) {
	path := stateFile(t)
	run, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := run.Transition("fetch", StatusRunning, ""); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := run.Transition("fetch", StatusCompleted, ""); err != nil {
		t.Fatalf("transition: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.RunID != run.RunID {
		t.Error("run ID should survive reload")
	}
	rec, _ := reloaded.Record("fetch")
	if rec.Status != StatusCompleted {
		t.Errorf("expected completed after reload, got %s", rec.Status)
	}
	if rec.StartedAt == nil || rec.EndedAt == nil {
		t.Error("expected timestamps to be persisted")
	}
}

func TestTransition_RecordsFailure(t *testing.T) {
	run, err := Load(stateFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	_ = run.Transition("convert", StatusRunning, "")
	if err := run.Transition("convert", StatusFailed, "pdftotext not found"); err != nil {
		t.Fatalf("transition: %v", err)
	}

	rec, _ := run.Record("convert")
	if rec.Status != StatusFailed {
		t.Errorf("expected failed, got %s", rec.Status)
	}
	if rec.Error != "pdftotext not found" {
		t.Errorf("expected error message, got %q", rec.Error)
	}
}

func TestTransition_SingleRunningInvariant(t *testing.T) {
	run, err := Load(stateFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := run.Transition("fetch", StatusRunning, ""); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := run.Transition("convert", StatusRunning, ""); err == nil {
		t.Error("expected refusal to run two steps at once")
	}
}

func TestTransition_UnknownStep(t *testing.T) {
	run, err := Load(stateFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := run.Transition("westlaw", StatusRunning, ""); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestFirstIncomplete(t *testing.T) {
	run, err := Load(stateFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := run.FirstIncomplete(); got != "fetch" {
		t.Errorf("expected fetch first, got %s", got)
	}

	_ = run.Transition("fetch", StatusSkipped, "")
	_ = run.Transition("convert", StatusCompleted, "")
	if got := run.FirstIncomplete(); got != "authorities" {
		t.Errorf("expected authorities after skip+complete, got %s", got)
	}

	for _, name := range StepNames {
		_ = run.Transition(name, StatusCompleted, "")
	}
	if got := run.FirstIncomplete(); got != "" {
		t.Errorf("expected empty when all complete, got %s", got)
	}
}

func TestLoad_RecoveredRunningState(t *testing.T) {
	path := stateFile(t)
	run, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_ = run.Transition("fetch", StatusCompleted, "")
	_ = run.Transition("convert", StatusRunning, "")

	// Simulate a crash: reload and observe the stale running status.
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	rec, _ := reloaded.Record("convert")
	if rec.Status != StatusRunning {
		t.Fatalf("expected recovered running status, got %s", rec.Status)
	}

	// Resume picks the interrupted step, never assumes it is executing.
	if got := reloaded.FirstIncomplete(); got != "convert" {
		t.Errorf("expected convert to be resumed, got %s", got)
	}
	// And the machine allows re-running it.
	if err := reloaded.Transition("convert", StatusRunning, ""); err != nil {
		t.Errorf("expected re-transition of recovered step to succeed: %v", err)
	}
}

func TestLoad_IgnoresUnknownSteps(t *testing.T) {
	path := stateFile(t)
	content := `{"run_id":"abc","steps":{"fetch":{"name":"fetch","status":"completed"},"westlaw":{"name":"westlaw","status":"failed"}}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	run, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if run.RunID != "abc" {
		t.Errorf("expected stored run ID, got %s", run.RunID)
	}
	if _, ok := run.Record("westlaw"); ok {
		t.Error("unknown steps should not survive load")
	}
	rec, _ := run.Record("fetch")
	if rec.Status != StatusCompleted {
		t.Errorf("expected completed fetch, got %s", rec.Status)
	}
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	path := stateFile(t)
	run, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := run.Transition("fetch", StatusRunning, ""); err != nil {
		t.Fatalf("transition: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestTransition_Timestamps(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return fixed }
	defer func() { nowFunc = time.Now }()

	run, err := Load(stateFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_ = run.Transition("fetch", StatusRunning, "")
	rec, _ := run.Record("fetch")
	if rec.StartedAt == nil || !rec.StartedAt.Equal(fixed) {
		t.Errorf("unexpected start time: %v", rec.StartedAt)
	}
	if rec.EndedAt != nil {
		t.Error("running step should have no end time")
	}
}
