package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var fixedTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// newTestEmitter returns an emitter with a fixed clock writing to a temp file.
func newTestEmitter(t *testing.T) (*Emitter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	em, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter(%q): %v", path, err)
	}
	em.now = func() time.Time { return fixedTime }
	return em, path
}

// readLines returns the non-empty lines of the file at path.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestNewEmitter_EmptyPathIsDisabled(t *testing.T) {
	t.Parallel()

	em, err := NewEmitter("")
	if err != nil {
		t.Fatalf("NewEmitter(\"\"): %v", err)
	}
	if em != nil {
		t.Fatalf("expected nil emitter for empty path, got %#v", em)
	}
}

func TestNewEmitter_ErrorOnBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewEmitter(filepath.Join(t.TempDir(), "missing", "events.jsonl"))
	if err == nil {
		t.Fatal("expected error for a path in a missing directory")
	}
	if !strings.HasPrefix(err.Error(), "telemetry: open") {
		t.Errorf("error = %v, want telemetry: open prefix", err)
	}
}

func TestRecord_Invocation(t *testing.T) {
	t.Parallel()

	em, path := newTestEmitter(t)
	em.Record(KindInvocationDone, "build", Invocation{
		Tool:       "nix",
		Args:       []string{"build", "-f", "nilla.nix"},
		ExitCode:   1,
		DurationMs: 1200,
	})
	if err := em.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := `{"ts":"2026-03-01T09:30:00Z","kind":"invocation_done","run":"` + em.RunID() +
		`","command":"build","data":{"tool":"nix","args":["build","-f","nilla.nix"],"exit_code":1,"duration_ms":1200}}`
	if diff := cmp.Diff([]string{want}, readLines(t, path)); diff != "" {
		t.Errorf("file contents mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_KeepsExplicitFields(t *testing.T) {
	t.Parallel()

	em, path := newTestEmitter(t)
	ts := fixedTime.Add(-time.Hour)
	if err := em.Emit(Event{Timestamp: ts, Kind: KindCommandStart, RunID: "other"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	em.Close()

	var got Event
	if err := json.Unmarshal([]byte(readLines(t, path)[0]), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !got.Timestamp.Equal(ts) || got.RunID != "other" {
		t.Errorf("event = %+v, want explicit timestamp and run id kept", got)
	}
}

func TestEmit_ConcurrentWritersProduceWholeLines(t *testing.T) {
	t.Parallel()

	em, path := newTestEmitter(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			em.Record(KindInvocationStart, "show", map[string]int{"attr": i})
		}()
	}
	wg.Wait()
	em.Close()

	lines := readLines(t, path)
	if len(lines) != n {
		t.Fatalf("got %d lines, want %d", len(lines), n)
	}
	for i, line := range lines {
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Errorf("line %d: invalid JSON: %v", i, err)
		}
	}
}

func TestEmitter_AppendsAcrossRuns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "append.jsonl")
	var ids []string
	for _, command := range []string{"build", "show"} {
		em, err := NewEmitter(path)
		if err != nil {
			t.Fatalf("NewEmitter: %v", err)
		}
		em.Record(KindCommandStart, command, nil)
		ids = append(ids, em.RunID())
		em.Close()
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if ids[0] == ids[1] {
		t.Error("separate runs should carry distinct run ids")
	}
}

func TestNilEmitter_NoOp(t *testing.T) {
	t.Parallel()

	var em *Emitter
	if err := em.Emit(Event{Kind: KindCommandStart}); err != nil {
		t.Errorf("nil Emit: %v", err)
	}
	em.Record(KindCommandDone, "show", nil)
	if em.RunID() != "" {
		t.Errorf("nil RunID = %q, want empty", em.RunID())
	}
	if err := em.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
