package trace

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is one recorded measurement of optimizer progress.
type Snapshot struct {
	// Iteration is the optimizer iteration this snapshot was taken at
	Iteration int `json:"iteration"`

	// Timestamp is the elapsed wall-clock time in seconds since the trace started
	Timestamp float64 `json:"timestamp"`

	// Primal is the primal objective reported by the optimizer
	Primal float64 `json:"primal"`

	// Dual is the dual objective, only present for solvers that track a dual bound
	Dual *float64 `json:"dual,omitempty"`

	// Loss is the training loss; per-example losses are summed before storage
	Loss *float64 `json:"loss,omitempty"`
}

// HasDual reports whether the snapshot carries a dual objective.
func (s Snapshot) HasDual() bool { return s.Dual != nil }

// HasLoss reports whether the snapshot carries a loss value.
func (s Snapshot) HasLoss() bool { return s.Loss != nil }

// Trace is the full recorded history of one optimizer run.
type Trace struct {
	// RunID uniquely identifies the run that produced the trace
	RunID string `json:"runId"`

	// Label is an optional display name
	Label string `json:"label,omitempty"`

	// Solver names the producer (e.g. "mayfly", "bfgs")
	Solver string `json:"solver,omitempty"`

	// LogEvery is the sampling cadence in optimizer iterations
	LogEvery int `json:"logEvery"`

	// Created records when recording started
	Created time.Time `json:"created"`

	// Resumes lists snapshot positions at which a resumed recording began
	Resumes []int `json:"resumes,omitempty"`

	Snapshots []Snapshot `json:"-"`
}

// Len returns the number of snapshots.
func (t *Trace) Len() int { return len(t.Snapshots) }

// HasDual reports whether any snapshot recorded a dual objective.
func (t *Trace) HasDual() bool {
	for _, s := range t.Snapshots {
		if s.HasDual() {
			return true
		}
	}
	return false
}

// HasLoss reports whether any snapshot recorded a loss.
func (t *Trace) HasLoss() bool {
	for _, s := range t.Snapshots {
		if s.HasLoss() {
			return true
		}
	}
	return false
}

// Primal returns the primal objective sequence.
func (t *Trace) Primal() []float64 {
	out := make([]float64, len(t.Snapshots))
	for i, s := range t.Snapshots {
		out[i] = s.Primal
	}
	return out
}

// MaxDual returns the largest finite dual value, or -Inf if none was recorded.
func (t *Trace) MaxDual() float64 {
	best := math.Inf(-1)
	for _, s := range t.Snapshots {
		if s.Dual != nil && isFinite(*s.Dual) && *s.Dual > best {
			best = *s.Dual
		}
	}
	return best
}

// MinLoss returns the smallest finite loss, or +Inf if none was recorded.
func (t *Trace) MinLoss() float64 {
	best := math.Inf(1)
	for _, s := range t.Snapshots {
		if s.Loss != nil && isFinite(*s.Loss) && *s.Loss < best {
			best = *s.Loss
		}
	}
	return best
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Clone returns a deep copy of the trace.
func (t *Trace) Clone() *Trace {
	c := *t
	c.Resumes = append([]int(nil), t.Resumes...)
	c.Snapshots = make([]Snapshot, len(t.Snapshots))
	for i, s := range t.Snapshots {
		c.Snapshots[i] = s
		if s.Dual != nil {
			v := *s.Dual
			c.Snapshots[i].Dual = &v
		}
		if s.Loss != nil {
			v := *s.Loss
			c.Snapshots[i].Loss = &v
		}
	}
	return &c
}

// Validate checks the trace metadata and the ordering invariants of its
// snapshots: iterations strictly increasing, timestamps non-decreasing.
func (t *Trace) Validate() error {
	if t.LogEvery <= 0 {
		return &ValidationError{Field: "LogEvery", Reason: "must be positive"}
	}
	for i, s := range t.Snapshots {
		if s.Iteration < 0 {
			return &ValidationError{Field: fmt.Sprintf("Snapshots[%d].Iteration", i), Reason: "cannot be negative"}
		}
		if s.Timestamp < 0 {
			return &ValidationError{Field: fmt.Sprintf("Snapshots[%d].Timestamp", i), Reason: "cannot be negative"}
		}
		if i == 0 {
			continue
		}
		prev := t.Snapshots[i-1]
		if s.Iteration <= prev.Iteration {
			return &ValidationError{
				Field:  fmt.Sprintf("Snapshots[%d].Iteration", i),
				Reason: fmt.Sprintf("must be greater than %d", prev.Iteration),
			}
		}
		if s.Timestamp < prev.Timestamp {
			return &ValidationError{
				Field:  fmt.Sprintf("Snapshots[%d].Timestamp", i),
				Reason: fmt.Sprintf("must not be before %g", prev.Timestamp),
			}
		}
	}
	for _, pos := range t.Resumes {
		if pos < 0 || pos > len(t.Snapshots) {
			return &ValidationError{Field: "Resumes", Reason: fmt.Sprintf("position %d out of range", pos)}
		}
	}
	return nil
}
