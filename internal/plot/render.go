// Package plot renders convergence charts for a set of optimizer runs.
//
// Render builds Figures, which hold the plotted values in data space. A
// Figure is drawn with go-chart on logarithmic x and y axes, either as PNG
// (cropped to its content) or as SVG.
package plot

import (
	"errors"
	"log/slog"
	"math"

	"github.com/cwbudde/learningcurves/internal/palette"
	"github.com/cwbudde/learningcurves/internal/runs"
	"github.com/cwbudde/learningcurves/internal/trace"
)

// XAxis selects what the horizontal axis measures.
type XAxis int

const (
	// Iterations plots against passes through the training data.
	Iterations XAxis = iota
	// WallclockMinutes plots against elapsed training time.
	WallclockMinutes
)

// Label returns the axis caption.
func (x XAxis) Label() string {
	if x == WallclockMinutes {
		return "Training time (min)"
	}
	return "Passes through training data"
}

const (
	// LossFloor keeps loss values positive on a log axis; values at or below
	// the reference show up as a flat line at this level.
	LossFloor = 0.1

	lossYMin = 0.1
	lossYMax = 1e4

	DefaultWidth  = 800
	DefaultHeight = 480
)

// ErrNothingToPlot is returned when every run in the set is empty.
var ErrNothingToPlot = errors.New("no run has snapshots to plot")

// Options controls a Render call.
type Options struct {
	XAxis    XAxis
	ShowLoss bool
	Width    int
	Height   int
}

// Series is one curve in data space.
type Series struct {
	Name   string
	X      []float64
	Y      []float64
	Color  palette.RGB
	Dashed bool
}

// Figure is one chart: the objective chart or the loss chart.
type Figure struct {
	// Name is a short identifier used for file names and URLs
	Name   string
	Title  string
	XLabel string
	Series []Series

	// YMin and YMax fix the y range when both are positive
	YMin, YMax float64

	Width, Height int
}

// Artifacts is the output of Render. Loss is nil unless the loss chart was
// requested and at least one run recorded a loss.
type Artifacts struct {
	Objective *Figure
	Loss      *Figure
	Skipped   []*trace.EmptyTraceError
}

// Figures returns the non-nil figures in display order.
func (a *Artifacts) Figures() []*Figure {
	figs := []*Figure{a.Objective}
	if a.Loss != nil {
		figs = append(figs, a.Loss)
	}
	return figs
}

// Render builds the objective figure and, if requested, the loss figure.
// Runs without snapshots are skipped and reported in Artifacts.Skipped.
func Render(set runs.RunSet, ref runs.Reference, opts Options) (*Artifacts, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	arts := &Artifacts{Skipped: set.Empty()}
	for _, skipped := range arts.Skipped {
		slog.Warn("Skipping empty trace", "path", skipped.Path)
	}
	if len(arts.Skipped) == len(set) {
		return nil, ErrNothingToPlot
	}

	objective := &Figure{
		Name:   "objective",
		Title:  "Objective",
		XLabel: opts.XAxis.Label(),
		Width:  opts.Width,
		Height: opts.Height,
	}
	if ref.HasDual {
		objective.Title = "Primal Suboptimality"
	}

	var loss *Figure
	if opts.ShowLoss && set.AnyLoss() {
		loss = &Figure{
			Name:   "loss",
			Title:  "Training Error",
			XLabel: opts.XAxis.Label(),
			YMin:   lossYMin,
			YMax:   lossYMax,
			Width:  opts.Width,
			Height: opts.Height,
		}
	}

	for _, run := range set {
		if run.Trace == nil || run.Trace.Len() == 0 {
			continue
		}
		objective.Series = append(objective.Series, objectiveSeries(run, ref, opts.XAxis)...)
		if loss != nil && run.Trace.HasLoss() {
			loss.Series = append(loss.Series, lossSeries(run, ref, opts.XAxis))
		}
	}

	arts.Objective = objective
	arts.Loss = loss
	slog.Debug("Rendered figures",
		"objective_series", len(objective.Series),
		"loss_chart", loss != nil,
		"skipped", len(arts.Skipped),
	)
	return arts, nil
}

// XValues returns the x coordinate of every snapshot: minutes since start, or
// LogEvery*position+1 so the first sample stays off zero on a log axis.
func XValues(t *trace.Trace, axis XAxis) []float64 {
	xs := make([]float64, len(t.Snapshots))
	for i, s := range t.Snapshots {
		if axis == WallclockMinutes {
			xs[i] = s.Timestamp / 60
		} else {
			xs[i] = float64(t.LogEvery*i + 1)
		}
	}
	return xs
}

func objectiveSeries(run runs.Run, ref runs.Reference, axis XAxis) []Series {
	primal := run.Trace.Primal()
	xs := XValues(run.Trace, axis)
	// dual and loss may be sparse; x values follow the snapshots
	if len(xs) > len(primal) {
		xs = xs[:len(primal)]
	}

	var out []Series
	name := run.Label
	if ref.HasDual {
		for i := range primal {
			primal[i] -= ref.BestDual
		}
	} else if run.Trace.HasDual() {
		var dx, dy []float64
		for i, s := range run.Trace.Snapshots[:len(xs)] {
			if s.Dual != nil {
				dx = append(dx, xs[i])
				dy = append(dy, *s.Dual)
			}
		}
		out = append(out, Series{
			Name:   run.Label + "dual objective",
			X:      dx,
			Y:      dy,
			Color:  run.Color,
			Dashed: true,
		})
		name = run.Label + "primal objective"
	}

	out = append(out, Series{
		Name:  name,
		X:     xs,
		Y:     primal[:len(xs)],
		Color: run.Color,
	})
	return out
}

func lossSeries(run runs.Run, ref runs.Reference, axis XAxis) Series {
	xs := XValues(run.Trace, axis)
	var lx, raw []float64
	for i, s := range run.Trace.Snapshots {
		if s.Loss != nil {
			lx = append(lx, xs[i])
			raw = append(raw, *s.Loss)
		}
	}
	return Series{
		Name:  run.Label,
		X:     lx,
		Y:     LossValues(raw, ref.BestLoss),
		Color: run.Color,
	}
}

// LossValues subtracts the reference loss and floors the result at
// LossFloor.
func LossValues(losses []float64, best float64) []float64 {
	out := make([]float64, len(losses))
	for i, l := range losses {
		out[i] = math.Max(LossFloor, l-best)
	}
	return out
}
