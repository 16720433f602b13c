package runs

import (
	"log/slog"
	"math"
)

// Reference holds the baselines shared by every run in one comparison.
type Reference struct {
	// BestDual is the largest dual value recorded by any run. Only meaningful
	// when HasDual is set; without it primal values are plotted as-is.
	BestDual float64
	HasDual  bool

	// BestLoss is subtracted from every loss value. Zero means absolute loss.
	BestLoss float64
}

// Reconcile computes one normalization baseline for the whole run set.
//
// With relativeDual the best dual bound across all runs becomes the
// reference for primal suboptimality; it is absent when disabled or when no
// run recorded a finite dual value. With relativeLoss the smallest recorded
// loss becomes the loss reference, otherwise losses are plotted absolutely.
func Reconcile(set RunSet, relativeDual, relativeLoss bool) Reference {
	var ref Reference

	if relativeDual {
		best := math.Inf(-1)
		for _, r := range set {
			if r.Trace == nil {
				continue
			}
			best = math.Max(best, r.Trace.MaxDual())
		}
		if !math.IsInf(best, 0) && !math.IsNaN(best) {
			ref.BestDual = best
			ref.HasDual = true
		} else {
			slog.Debug("No dual objective recorded, plotting raw primal values")
		}
	}

	if relativeLoss {
		best := math.Inf(1)
		for _, r := range set {
			if r.Trace == nil {
				continue
			}
			best = math.Min(best, r.Trace.MinLoss())
		}
		if !math.IsInf(best, 0) && !math.IsNaN(best) {
			ref.BestLoss = best
		} else {
			slog.Debug("No loss recorded, using absolute loss")
		}
	}

	return ref
}
