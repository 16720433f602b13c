// Package opt adapts external optimizers so their progress is recorded into a
// trace. The optimizers themselves live in third-party libraries.
package opt

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run executes the optimization
	// eval: objective function to minimize
	// lower, upper: parameter bounds
	// dim: dimensionality of parameter space
	// Returns: best parameters and best cost
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}

// New returns the optimizer registered under name: "mayfly", "neldermead"
// or "bfgs".
func New(name string, maxIters, popSize int, seed int64, rec Recorder) (Optimizer, error) {
	switch name {
	case "mayfly":
		return NewMayfly(maxIters, popSize, seed, rec), nil
	case "neldermead", "bfgs":
		return NewGonum(name, maxIters, rec), nil
	default:
		return nil, &UnknownOptimizerError{Name: name}
	}
}

// UnknownOptimizerError is returned by New for unregistered names.
type UnknownOptimizerError struct {
	Name string
}

func (e *UnknownOptimizerError) Error() string {
	return "unknown optimizer: " + e.Name + " (want mayfly, neldermead or bfgs)"
}
