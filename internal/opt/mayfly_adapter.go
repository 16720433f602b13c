package opt

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
	rec      Recorder
}

// NewMayfly creates a new Mayfly optimizer adapter.
//
// Mayfly exposes no per-iteration hook, so progress is observed through the
// objective: every evaluation counts as one recorder iteration and the best
// cost seen so far is recorded as the primal objective.
func NewMayfly(maxIters, popSize int, seed int64, rec Recorder) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
		rec:      orNop(rec),
	}
}

// Run executes the Mayfly optimization using the external library
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	evals := 0
	best := math.Inf(1)
	observed := func(x []float64) float64 {
		cost := eval(x)
		evals++
		if cost < best {
			best = cost
		}
		m.rec.Record(evals, best)
		return cost
	}

	// Create config for external Mayfly library
	config := mayfly.NewDefaultConfig()

	config.ObjectiveFunc = observed
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// External library uses scalar bounds; use the first dimension
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Mayfly optimization failed, falling back to zero vector", "error", err)
		zero := make([]float64, dim)
		cost := observed(zero)
		m.rec.RecordFinal(evals, best)
		return zero, cost
	}

	m.rec.RecordFinal(evals, best)
	return result.GlobalBest.Position, result.GlobalBest.Cost
}
