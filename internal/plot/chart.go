package plot

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/cwbudde/learningcurves/internal/palette"
)

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	default:
		return "", fmt.Errorf("unknown format %q (want png or svg)", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

// logSeries is a series mapped into log10 space.
type logSeries struct {
	src  Series
	x, y []float64
}

// toLog drops points that cannot be shown on a log axis.
func toLog(s Series) logSeries {
	ls := logSeries{src: s}
	n := min(len(s.X), len(s.Y))
	for i := 0; i < n; i++ {
		x, y := s.X[i], s.Y[i]
		if x <= 0 || y <= 0 || math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		ls.x = append(ls.x, math.Log10(x))
		ls.y = append(ls.y, math.Log10(y))
	}
	return ls
}

// decades returns the integer decade range covering [lo, hi] in log space.
func decades(lo, hi float64) (float64, float64) {
	lo, hi = math.Floor(lo), math.Ceil(hi)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// decadeTicks places one tick per power of ten, thinned out for wide ranges.
func decadeTicks(lo, hi float64) []chart.Tick {
	step := math.Max(1, math.Ceil((hi-lo)/10))
	var ticks []chart.Tick
	for k := lo; k <= hi; k += step {
		ticks = append(ticks, chart.Tick{Value: k, Label: decadeLabel(int(k))})
	}
	return ticks
}

func decadeLabel(k int) string {
	if k >= -3 && k <= 4 {
		return strconv.FormatFloat(math.Pow10(k), 'f', -1, 64)
	}
	return fmt.Sprintf("1e%d", k)
}

func toDrawing(c palette.RGB) drawing.Color {
	n := c.NRGBA()
	return drawing.Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

// Chart converts the figure into a go-chart chart with logarithmic axes.
func (f *Figure) Chart() (*chart.Chart, error) {
	var (
		series     []chart.Series
		xmin, xmax = math.Inf(1), math.Inf(-1)
		ymin, ymax = math.Inf(1), math.Inf(-1)
		named      bool
	)

	for _, s := range f.Series {
		ls := toLog(s)
		if len(ls.x) == 0 {
			slog.Debug("Series has no plottable points", "figure", f.Name, "series", s.Name)
			continue
		}
		for i := range ls.x {
			xmin, xmax = math.Min(xmin, ls.x[i]), math.Max(xmax, ls.x[i])
			ymin, ymax = math.Min(ymin, ls.y[i]), math.Max(ymax, ls.y[i])
		}

		style := chart.Style{
			StrokeColor: toDrawing(s.Color),
			StrokeWidth: 2,
		}
		if s.Dashed {
			style.StrokeDashArray = []float64{6, 4}
		}
		if len(ls.x) == 1 {
			style.DotColor = toDrawing(s.Color)
			style.DotWidth = 3
		}
		if strings.TrimSpace(s.Name) != "" {
			named = true
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: ls.x,
			YValues: ls.y,
			Style:   style,
		})
	}
	empty := len(series) == 0
	if empty {
		slog.Warn("Figure has no positive values to plot on log axes, drawing empty axes", "figure", f.Name)
		xmin, xmax = 0, 1
		ymin, ymax = 0, 1
	}

	if f.YMin > 0 && f.YMax > f.YMin {
		ymin, ymax = math.Log10(f.YMin), math.Log10(f.YMax)
	}
	xlo, xhi := decades(xmin, xmax)
	ylo, yhi := decades(ymin, ymax)
	if empty {
		// go-chart refuses a chart without series
		series = append(series, chart.ContinuousSeries{
			XValues: []float64{xlo, xhi},
			YValues: []float64{ylo, ylo},
			Style:   chart.Style{Hidden: true},
		})
	}

	c := &chart.Chart{
		Title:  f.Title,
		Width:  f.Width,
		Height: f.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:  f.XLabel,
			Range: &chart.ContinuousRange{Min: xlo, Max: xhi},
			Ticks: decadeTicks(xlo, xhi),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: ylo, Max: yhi},
			Ticks: decadeTicks(ylo, yhi),
		},
		Series: series,
	}
	if named {
		c.Elements = []chart.Renderable{chart.Legend(c)}
	}
	return c, nil
}

// Render draws the figure to w.
func (f *Figure) Render(w io.Writer, format Format) error {
	c, err := f.Chart()
	if err != nil {
		return err
	}
	if err := c.Render(format.provider(), w); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", f.Name, err)
	}
	return nil
}

// Bytes renders the figure into memory. PNG output is cropped to the tight
// bounding box of its content.
func (f *Figure) Bytes(format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf, format); err != nil {
		return nil, err
	}
	if format != PNG {
		return buf.Bytes(), nil
	}
	return CropPNG(buf.Bytes(), cropMargin)
}

// Save renders the figure and writes it to path.
func (f *Figure) Save(path string, format Format) error {
	data, err := f.Bytes(format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	slog.Info("Chart saved", "figure", f.Name, "path", path)
	return nil
}

// Save writes every figure independently: the objective chart to
// prefix+ext and the loss chart to prefix+"_loss"+ext. It returns the paths
// written.
func (a *Artifacts) Save(prefix string, format Format) ([]string, error) {
	var paths []string
	for _, fig := range a.Figures() {
		path := prefix + format.Ext()
		if fig != a.Objective {
			path = prefix + "_" + fig.Name + format.Ext()
		}
		if err := fig.Save(path, format); err != nil {
			return paths, fmt.Errorf("save %s chart: %w", fig.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
