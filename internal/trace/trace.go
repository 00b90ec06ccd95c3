// Package trace defines the execution trace exchange format. Traces are
// captured by an external instrumentation harness for both the Java
// original and the generated JavaScript; this package only loads, checks,
// and normalizes their serialized form. The JSON shape is interop surface
// and must not drift.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Language tags carried by trace producers.
const (
	LanguageJava       = "java"
	LanguageJavaScript = "javascript"
)

// Snapshot is one observed program state: where execution was and what the
// local variables held.
type Snapshot struct {
	Timestamp    float64           `json:"timestamp"`
	FunctionName string            `json:"functionName"`
	LineNumber   int               `json:"lineNumber"`
	Variables    map[string]string `json:"variables,omitempty"`
	ReturnValue  *string           `json:"returnValue,omitempty"`
	CallStack    []string          `json:"callStack,omitempty"`
}

// Metadata describes the capture run.
type Metadata struct {
	SourceFile    string  `json:"sourceFile"`
	ExecutionTime float64 `json:"executionTime"`
	SnapshotCount int     `json:"snapshotCount"`
}

// ExecutionTrace is an ordered sequence of snapshots from one program run.
type ExecutionTrace struct {
	Language  string     `json:"language"`
	Snapshots []Snapshot `json:"snapshots"`
	Metadata  Metadata   `json:"metadata"`
}

// Parse decodes and validates a serialized trace.
func Parse(data []byte) (*ExecutionTrace, error) {
	if err := validateTrace(data); err != nil {
		return nil, err
	}
	var tr ExecutionTrace
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse trace JSON: %w", err)
	}
	return &tr, nil
}

// Load reads, validates, and normalizes a trace file.
func Load(path string) (*ExecutionTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	tr, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("trace file %s: %w", path, err)
	}
	tr.Normalize()
	return tr, nil
}

// Save writes the trace as indented JSON.
func Save(path string, tr *ExecutionTrace) error {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write trace file: %w", err)
	}
	return nil
}

// Normalize orders snapshots by capture time and fills in a missing
// snapshot count. Producers on the JavaScript side flush asynchronously,
// so on-disk order is not guaranteed.
func (t *ExecutionTrace) Normalize() {
	sort.SliceStable(t.Snapshots, func(i, j int) bool {
		return t.Snapshots[i].Timestamp < t.Snapshots[j].Timestamp
	})
	if t.Metadata.SnapshotCount == 0 {
		t.Metadata.SnapshotCount = len(t.Snapshots)
	}
}

// FunctionNames returns the distinct function names in first-seen order.
func (t *ExecutionTrace) FunctionNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range t.Snapshots {
		if s.FunctionName == "" || seen[s.FunctionName] {
			continue
		}
		seen[s.FunctionName] = true
		names = append(names, s.FunctionName)
	}
	return names
}

// EntrySnapshot returns the first snapshot recorded for a function.
func (t *ExecutionTrace) EntrySnapshot(functionName string) (Snapshot, bool) {
	for _, s := range t.Snapshots {
		if s.FunctionName == functionName {
			return s, true
		}
	}
	return Snapshot{}, false
}

// LastReturn returns the last observed return value for a function, if
// any snapshot recorded one.
func (t *ExecutionTrace) LastReturn(functionName string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, s := range t.Snapshots {
		if s.FunctionName == functionName && s.ReturnValue != nil {
			value = *s.ReturnValue
			found = true
		}
	}
	return value, found
}

// MaxCallDepth returns the deepest call stack observed in the trace.
func (t *ExecutionTrace) MaxCallDepth() int {
	depth := 0
	for _, s := range t.Snapshots {
		if len(s.CallStack) > depth {
			depth = len(s.CallStack)
		}
	}
	return depth
}
