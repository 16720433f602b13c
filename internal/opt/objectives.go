package opt

import (
	"fmt"

	"gonum.org/v1/gonum/optimize/functions"
)

// Objective is a benchmark function with its search box.
type Objective struct {
	Name         string
	Func         func([]float64) float64
	Lower, Upper float64
}

// Bounds returns per-dimension bounds for dim parameters.
func (o Objective) Bounds(dim int) (lower, upper []float64) {
	lower = make([]float64, dim)
	upper = make([]float64, dim)
	for i := range lower {
		lower[i] = o.Lower
		upper[i] = o.Upper
	}
	return lower, upper
}

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func Sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// LookupObjective returns a benchmark objective by name.
func LookupObjective(name string) (Objective, error) {
	switch name {
	case "sphere":
		return Objective{Name: name, Func: Sphere, Lower: -10, Upper: 10}, nil
	case "rosenbrock":
		return Objective{Name: name, Func: functions.ExtendedRosenbrock{}.Func, Lower: -2, Upper: 3}, nil
	default:
		return Objective{}, fmt.Errorf("unknown objective %q (want sphere or rosenbrock)", name)
	}
}
