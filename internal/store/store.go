// Package store keeps an index of persisted traces so runs can be listed and
// cleaned up without opening every trace file.
package store

import (
	"context"
	"time"

	"github.com/cwbudde/learningcurves/internal/trace"
)

// Store defines the interface for the trace index.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if an entry doesn't exist (for Get/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// Register records or refreshes the summary of the trace stored at path.
	// Entries are keyed by the trace's RunID.
	Register(ctx context.Context, path string, t *trace.Trace) error

	// Get returns the entry for runID.
	Get(ctx context.Context, runID string) (TraceInfo, error)

	// List returns all entries, newest first.
	List(ctx context.Context) ([]TraceInfo, error)

	// Delete removes the entry for runID. The trace file itself is untouched.
	Delete(ctx context.Context, runID string) error

	Close() error
}

// TraceInfo summarizes one persisted trace without its snapshots.
type TraceInfo struct {
	RunID       string
	Path        string
	Label       string
	Solver      string
	LogEvery    int
	Snapshots   int
	Resumes     int
	FinalPrimal *float64
	BestDual    *float64
	FinalLoss   *float64
	Elapsed     float64 // seconds covered by the trace
	Created     time.Time
	Registered  time.Time
}

// Summarize builds the index entry for t.
func Summarize(path string, t *trace.Trace) TraceInfo {
	info := TraceInfo{
		RunID:     t.RunID,
		Path:      path,
		Label:     t.Label,
		Solver:    t.Solver,
		LogEvery:  t.LogEvery,
		Snapshots: t.Len(),
		Resumes:   len(t.Resumes),
		Created:   t.Created,
	}
	if n := t.Len(); n > 0 {
		last := t.Snapshots[n-1]
		primal := last.Primal
		info.FinalPrimal = &primal
		info.Elapsed = last.Timestamp
	}
	if t.HasDual() {
		d := t.MaxDual()
		info.BestDual = &d
	}
	for i := t.Len() - 1; i >= 0; i-- {
		if l := t.Snapshots[i].Loss; l != nil {
			v := *l
			info.FinalLoss = &v
			break
		}
	}
	return info
}

// ErrNotFound is returned when a requested entry does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing index entry.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "trace not found: " + e.RunID
	}
	return "trace not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
