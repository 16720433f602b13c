package opt

import "github.com/cwbudde/learningcurves/internal/trace"

// Recorder is the part of *trace.Recorder the adapters use.
type Recorder interface {
	Record(iteration int, primal float64, opts ...trace.MeasureOption) bool
	RecordFinal(iteration int, primal float64, opts ...trace.MeasureOption) bool
}

// nopRecorder is used when an adapter is built without a recorder.
type nopRecorder struct{}

func (nopRecorder) Record(int, float64, ...trace.MeasureOption) bool      { return false }
func (nopRecorder) RecordFinal(int, float64, ...trace.MeasureOption) bool { return false }

func orNop(rec Recorder) Recorder {
	if rec == nil {
		return nopRecorder{}
	}
	return rec
}
