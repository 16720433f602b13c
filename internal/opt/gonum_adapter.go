package opt

import (
	"log/slog"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// GonumRecorder implements optimize.Recorder, forwarding every major
// iteration of a gonum optimization to a trace recorder.
type GonumRecorder struct {
	rec  Recorder
	iter int
	last float64
}

var _ optimize.Recorder = (*GonumRecorder)(nil)

// NewGonumRecorder wraps rec for use in optimize.Settings.Recorder.
func NewGonumRecorder(rec Recorder) *GonumRecorder {
	return &GonumRecorder{rec: orNop(rec)}
}

// Init implements optimize.Recorder.
func (g *GonumRecorder) Init() error {
	g.iter = 0
	return nil
}

// Record implements optimize.Recorder. Only major iterations are recorded;
// function and gradient evaluations in between are ignored.
func (g *GonumRecorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op&optimize.MajorIteration == 0 || loc == nil {
		return nil
	}
	g.iter++
	g.last = loc.F
	g.rec.Record(g.iter, loc.F)
	return nil
}

// Finish records the last major iteration if the cadence skipped it.
func (g *GonumRecorder) Finish() {
	if g.iter > 0 {
		g.rec.RecordFinal(g.iter, g.last)
	}
}

// Iterations returns the number of major iterations seen.
func (g *GonumRecorder) Iterations() int { return g.iter }

// GonumAdapter runs a gonum optimize method. Bounds only choose the starting
// point (their midpoint); the gonum methods used here are unconstrained.
type GonumAdapter struct {
	method   string
	maxIters int
	rec      Recorder
}

// NewGonum creates an adapter for "neldermead" or "bfgs". BFGS uses a
// finite-difference gradient of the objective.
func NewGonum(method string, maxIters int, rec Recorder) Optimizer {
	return &GonumAdapter{method: method, maxIters: maxIters, rec: orNop(rec)}
}

// Run executes the optimization with optimize.Minimize.
func (g *GonumAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	problem := optimize.Problem{Func: eval}

	var method optimize.Method
	switch g.method {
	case "bfgs":
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, eval, x, nil)
		}
		method = &optimize.BFGS{}
	default:
		method = &optimize.NelderMead{}
	}

	x0 := make([]float64, dim)
	for i := range x0 {
		x0[i] = (lower[i] + upper[i]) / 2
	}

	recorder := NewGonumRecorder(g.rec)
	settings := &optimize.Settings{
		MajorIterations: g.maxIters,
		Recorder:        recorder,
	}

	result, err := optimize.Minimize(problem, x0, settings, method)
	recorder.Finish()
	if err != nil {
		slog.Warn("Gonum optimization stopped with error", "method", g.method, "error", err)
		if result == nil {
			return x0, eval(x0)
		}
	}

	slog.Debug("Gonum optimization finished",
		"method", g.method,
		"status", result.Status.String(),
		"major_iterations", recorder.Iterations(),
	)
	return result.X, result.F
}
