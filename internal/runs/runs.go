// Package runs loads persisted traces for side-by-side comparison and
// computes the shared reference values used to normalize them.
package runs

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/learningcurves/internal/palette"
	"github.com/cwbudde/learningcurves/internal/trace"
)

// Run is one loaded trace together with its display label and color.
type Run struct {
	Trace *trace.Trace
	Path  string
	Label string
	Color palette.RGB
}

// RunSet is the ordered collection of runs compared in one rendering call.
type RunSet []Run

// Load reads every path in order. The first failure aborts the load: either
// all runs are returned or none, and the error names the offending path.
func Load(paths []string) (RunSet, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one trace path is required")
	}

	labels := DeriveLabels(paths, len(trace.Ext))
	set := make(RunSet, 0, len(paths))
	for i, path := range paths {
		slog.Info("Loading trace", "path", path)
		t, err := trace.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		set = append(set, Run{Trace: t, Path: path, Label: labels[i]})
	}
	return set, nil
}

// Colorize assigns colors by run position.
func (s RunSet) Colorize(a palette.Assigner) {
	for i := range s {
		s[i].Color = a.Assign(i)
	}
}

// Empty returns the runs without snapshots, flagged as errors.
func (s RunSet) Empty() []*trace.EmptyTraceError {
	var out []*trace.EmptyTraceError
	for _, r := range s {
		if r.Trace == nil || r.Trace.Len() == 0 {
			out = append(out, &trace.EmptyTraceError{Path: r.Path})
		}
	}
	return out
}

// AnyLoss reports whether any run recorded a loss.
func (s RunSet) AnyLoss() bool {
	for _, r := range s {
		if r.Trace != nil && r.Trace.HasLoss() {
			return true
		}
	}
	return false
}
