// Package telemetry provides a JSONL event stream for recording what a nilla
// invocation did. Every external nix invocation and every command start and
// finish is recorded as a structured JSON event tagged with a per-run id, so a
// slow or failing build can be audited after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds identify the type of telemetry event.
const (
	KindCommandStart     = "command_start"
	KindCommandDone      = "command_done"
	KindInvocationStart  = "invocation_start"
	KindInvocationDone   = "invocation_done"
	KindWatchRebuild     = "watch_rebuild"
	KindAttributeSkipped = "attribute_skipped"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, the run id, and optional structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run"`
	Command   string    `json:"command,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Invocation is the Data payload of invocation events.
type Invocation struct {
	Tool       string   `json:"tool"`
	Args       []string `json:"args"`
	ExitCode   int      `json:"exit_code"`
	DurationMs int64    `json:"duration_ms,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file  *os.File
	enc   *json.Encoder
	runID string
	now   func() time.Time
	mu    sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
// An empty path yields a nil (no-op) emitter.
func NewEmitter(path string) (*Emitter, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file:  f,
		enc:   json.NewEncoder(f),
		runID: uuid.NewString(),
		now:   time.Now,
	}, nil
}

// RunID returns the id stamped on every event of this run, or "" for a nil
// emitter.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Emit writes a single event to the JSONL file, filling in the timestamp and
// run id when they are unset. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record is shorthand for emitting an event of the given kind. Encoding
// errors are dropped; telemetry never fails a command.
func (e *Emitter) Record(kind, command string, data any) {
	_ = e.Emit(Event{Kind: kind, Command: command, Data: data})
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
