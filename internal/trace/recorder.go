package trace

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder accumulates snapshots while an optimizer runs.
//
// Record is called inline from the training loop, so it never returns an
// error and never blocks: it only observes the values it is given. A Recorder
// has a single writer and is not safe for concurrent use.
type Recorder struct {
	trace *Trace
	clock func() time.Time
	start time.Time

	// offsets applied to incoming values after Resume
	iterOffset int
	timeOffset float64
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) { r.clock = clock }
}

// WithLabel sets the trace display label.
func WithLabel(label string) RecorderOption {
	return func(r *Recorder) { r.trace.Label = label }
}

// WithSolver records which optimizer produced the trace.
func WithSolver(solver string) RecorderOption {
	return func(r *Recorder) { r.trace.Solver = solver }
}

// NewRecorder starts a new, empty trace sampled every logEvery iterations.
// A non-positive logEvery is treated as 1.
func NewRecorder(logEvery int, opts ...RecorderOption) *Recorder {
	if logEvery <= 0 {
		logEvery = 1
	}
	r := &Recorder{
		trace: &Trace{
			RunID:    uuid.NewString(),
			LogEvery: logEvery,
		},
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.clock()
	r.trace.Created = r.start
	return r
}

// Resume continues recording into a previously finalized trace.
//
// The previous count is continued: iterations reported after the resume are
// offset by the last recorded iteration and timestamps by the last recorded
// timestamp, so the ordering invariants still hold. The optimizer state is
// usually not restored exactly, so the curves may still show a visible jump at
// the resume point, which is stored in Trace.Resumes.
func Resume(t *Trace, opts ...RecorderOption) *Recorder {
	c := t.Clone()
	if c.LogEvery <= 0 {
		c.LogEvery = 1
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	r := &Recorder{trace: c, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.clock()
	if c.Created.IsZero() {
		c.Created = r.start
	}
	if n := len(c.Snapshots); n > 0 {
		last := c.Snapshots[n-1]
		r.iterOffset = last.Iteration
		r.timeOffset = last.Timestamp
	}
	c.Resumes = append(c.Resumes, len(c.Snapshots))

	slog.Warn("Resuming trace recording; curves may show a discontinuity at the resume point and time/iteration alignment across it is not guaranteed",
		"run_id", c.RunID,
		"snapshots", len(c.Snapshots),
		"iteration_offset", r.iterOffset,
		"time_offset", r.timeOffset,
	)
	return r
}

// measure holds the optional values of one Record call.
type measure struct {
	dual *float64
	loss *float64
}

// MeasureOption attaches an optional value to a recorded snapshot.
type MeasureOption func(*measure)

// WithDual attaches a dual objective value.
func WithDual(v float64) MeasureOption {
	return func(m *measure) { m.dual = &v }
}

// WithLoss attaches a loss. Per-example losses are summed into one scalar.
func WithLoss(values ...float64) MeasureOption {
	return func(m *measure) {
		var sum float64
		for _, v := range values {
			sum += v
		}
		m.loss = &sum
	}
}

// Record appends a snapshot when iteration is a positive multiple of the
// trace's LogEvery. It reports whether a snapshot was appended.
func (r *Recorder) Record(iteration int, primal float64, opts ...MeasureOption) bool {
	if iteration <= 0 || iteration%r.trace.LogEvery != 0 {
		return false
	}
	return r.append(iteration, primal, opts)
}

// RecordFinal appends a snapshot regardless of the sampling cadence, unless
// the iteration has already been recorded.
func (r *Recorder) RecordFinal(iteration int, primal float64, opts ...MeasureOption) bool {
	return r.append(iteration, primal, opts)
}

func (r *Recorder) append(iteration int, primal float64, opts []MeasureOption) bool {
	var m measure
	for _, opt := range opts {
		opt(&m)
	}

	if iteration+r.iterOffset < 0 {
		slog.Debug("Dropping snapshot with negative iteration", "iteration", iteration+r.iterOffset)
		return false
	}

	s := Snapshot{
		Iteration: iteration + r.iterOffset,
		Timestamp: r.timeOffset + r.clock().Sub(r.start).Seconds(),
		Primal:    primal,
		Dual:      m.dual,
		Loss:      m.loss,
	}

	if n := len(r.trace.Snapshots); n > 0 {
		last := r.trace.Snapshots[n-1]
		if s.Iteration <= last.Iteration {
			slog.Debug("Dropping out-of-order snapshot",
				"iteration", s.Iteration,
				"last_iteration", last.Iteration,
			)
			return false
		}
		if s.Timestamp < last.Timestamp {
			s.Timestamp = last.Timestamp
		}
	}

	r.trace.Snapshots = append(r.trace.Snapshots, s)
	return true
}

// Len returns the number of snapshots recorded so far.
func (r *Recorder) Len() int { return len(r.trace.Snapshots) }

// Trace returns a copy of the trace recorded so far.
func (r *Recorder) Trace() *Trace { return r.trace.Clone() }

// Persist writes the trace recorded so far to path. It may be called
// repeatedly; each call replaces the previous file.
func (r *Recorder) Persist(path string) error {
	if err := Save(path, r.trace); err != nil {
		return err
	}
	slog.Info("Trace persisted",
		"path", path,
		"run_id", r.trace.RunID,
		"snapshots", len(r.trace.Snapshots),
	)
	return nil
}
