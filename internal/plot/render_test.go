package plot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/learningcurves/internal/palette"
	"github.com/cwbudde/learningcurves/internal/runs"
	"github.com/cwbudde/learningcurves/internal/trace"
)

func f64(v float64) *float64 { return &v }

// decreasingTrace has five snapshots every 10 iterations, one second apart.
func decreasingTrace(start float64) *trace.Trace {
	t := &trace.Trace{LogEvery: 10}
	for i := range 5 {
		t.Snapshots = append(t.Snapshots, trace.Snapshot{
			Iteration: (i + 1) * 10,
			Timestamp: float64(i+1) * 30,
			Primal:    start - float64(i),
		})
	}
	return t
}

func runSet(traces ...*trace.Trace) runs.RunSet {
	set := make(runs.RunSet, len(traces))
	for i, t := range traces {
		set[i] = runs.Run{Trace: t, Label: string(rune('a'+i)) + " "}
	}
	set.Colorize(palette.NewHalton(1))
	return set
}

func TestXValues(t *testing.T) {
	tr := decreasingTrace(10)
	assert.Equal(t, []float64{1, 11, 21, 31, 41}, XValues(tr, Iterations))
	assert.Equal(t, []float64{0.5, 1, 1.5, 2, 2.5}, XValues(tr, WallclockMinutes))
}

func TestLossValues(t *testing.T) {
	got := LossValues([]float64{1.5, 3.0, 2.0}, 2.0)
	assert.Equal(t, []float64{0.1, 1.0, 0.1}, got)
}

func TestRender_Suboptimality(t *testing.T) {
	reference := decreasingTrace(50)
	for i := range reference.Snapshots {
		reference.Snapshots[i].Dual = f64(float64(i) * 2) // max 8
	}
	ref := runs.Reconcile(runs.RunSet{{Trace: reference}}, true, false)
	require.True(t, ref.HasDual)
	require.Equal(t, 8.0, ref.BestDual)

	set := runSet(decreasingTrace(20), decreasingTrace(30), decreasingTrace(40))
	arts, err := Render(set, ref, Options{})
	require.NoError(t, err)

	fig := arts.Objective
	assert.Equal(t, "Primal Suboptimality", fig.Title)
	require.Len(t, fig.Series, 3)
	for i, s := range fig.Series {
		assert.Equal(t, set[i].Label, s.Name, "suboptimality legend omits the objective kind")
		assert.False(t, s.Dashed)
		for _, y := range s.Y {
			assert.GreaterOrEqual(t, y, 0.0)
		}
	}
	assert.Equal(t, []float64{12, 11, 10, 9, 8}, fig.Series[0].Y)
	assert.Nil(t, arts.Loss)

	// The run set is not modified by rendering
	assert.Equal(t, 20.0, set[0].Trace.Snapshots[0].Primal)
}

func TestRender_DualAndPrimal(t *testing.T) {
	withDual := decreasingTrace(20)
	for i := range withDual.Snapshots {
		withDual.Snapshots[i].Dual = f64(float64(i + 1))
	}
	set := runSet(withDual, decreasingTrace(30))

	arts, err := Render(set, runs.Reconcile(set, false, false), Options{})
	require.NoError(t, err)

	fig := arts.Objective
	assert.Equal(t, "Objective", fig.Title)
	require.Len(t, fig.Series, 3)

	assert.Equal(t, "a dual objective", fig.Series[0].Name)
	assert.True(t, fig.Series[0].Dashed)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, fig.Series[0].Y)

	assert.Equal(t, "a primal objective", fig.Series[1].Name)
	assert.False(t, fig.Series[1].Dashed)
	assert.Equal(t, fig.Series[0].Color, fig.Series[1].Color)

	assert.Equal(t, "b ", fig.Series[2].Name)
	assert.Equal(t, []float64{30, 29, 28, 27, 26}, fig.Series[2].Y)
}

func TestRender_LossChart(t *testing.T) {
	withLoss := decreasingTrace(20)
	for i, l := range []float64{1.5, 3.0, 2.0} {
		withLoss.Snapshots[i].Loss = f64(l)
	}
	set := runSet(withLoss, decreasingTrace(30))
	ref := runs.Reference{BestLoss: 2.0}

	arts, err := Render(set, ref, Options{ShowLoss: true, XAxis: WallclockMinutes})
	require.NoError(t, err)
	require.NotNil(t, arts.Loss)
	assert.Len(t, arts.Figures(), 2)

	loss := arts.Loss
	assert.Equal(t, "Training Error", loss.Title)
	assert.Equal(t, "Training time (min)", loss.XLabel)
	require.Len(t, loss.Series, 1, "runs without loss get no loss curve")
	assert.Equal(t, []float64{0.1, 1.0, 0.1}, loss.Series[0].Y)
	assert.Equal(t, []float64{0.5, 1, 1.5}, loss.Series[0].X)
}

func TestRender_NoLossRecorded(t *testing.T) {
	arts, err := Render(runSet(decreasingTrace(20)), runs.Reference{}, Options{ShowLoss: true})
	require.NoError(t, err)
	assert.Nil(t, arts.Loss)
	assert.Len(t, arts.Figures(), 1)
}

func TestRender_SkipsEmpty(t *testing.T) {
	set := runSet(decreasingTrace(20), &trace.Trace{LogEvery: 10})
	set[1].Path = "empty.ctrace"

	arts, err := Render(set, runs.Reference{}, Options{})
	require.NoError(t, err)
	require.Len(t, arts.Skipped, 1)
	assert.Equal(t, "empty.ctrace", arts.Skipped[0].Path)
	assert.Len(t, arts.Objective.Series, 1)

	_, err = Render(runSet(&trace.Trace{LogEvery: 1}), runs.Reference{}, Options{})
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestFigure_RenderFormats(t *testing.T) {
	arts, err := Render(runSet(decreasingTrace(20), decreasingTrace(30)), runs.Reference{}, Options{Width: 400, Height: 300})
	require.NoError(t, err)

	svg, err := arts.Objective.Bytes(SVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	data, err := arts.Objective.Bytes(PNG)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 400)
	assert.LessOrEqual(t, img.Bounds().Dy(), 300)
}

func TestFigure_NoPositiveValues(t *testing.T) {
	fig := &Figure{Name: "objective", Series: []Series{{X: []float64{1, 2}, Y: []float64{-1, 0}}}}
	c, err := fig.Chart()
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.XAxis.Range.GetMin())
	assert.Equal(t, 1.0, c.XAxis.Range.GetMax())

	for _, format := range []Format{SVG, PNG} {
		data, err := fig.Bytes(format)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}

func TestRender_ReferenceReachedExactly(t *testing.T) {
	// every primal equals the best dual, so suboptimality is zero everywhere
	tr := decreasingTrace(5)
	for i := range tr.Snapshots {
		tr.Snapshots[i].Primal = 2
		tr.Snapshots[i].Dual = f64(2)
	}
	set := runSet(tr)
	arts, err := Render(set, runs.Reconcile(set, true, false), Options{})
	require.NoError(t, err)

	paths, err := arts.Save(filepath.Join(t.TempDir(), "flat"), SVG)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestArtifacts_Save(t *testing.T) {
	withLoss := decreasingTrace(20)
	for i := range withLoss.Snapshots {
		withLoss.Snapshots[i].Loss = f64(float64(100 - i))
	}
	arts, err := Render(runSet(withLoss), runs.Reference{}, Options{ShowLoss: true})
	require.NoError(t, err)

	prefix := filepath.Join(t.TempDir(), "out", "mnist")
	paths, err := arts.Save(prefix, PNG)
	require.NoError(t, err)
	assert.Equal(t, []string{prefix + ".png", prefix + "_loss.png"}, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, SVG, f)
	assert.Equal(t, ".svg", f.Ext())
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestDecadeTicks(t *testing.T) {
	ticks := decadeTicks(-1, 2)
	require.Len(t, ticks, 4)
	labels := []string{ticks[0].Label, ticks[1].Label, ticks[2].Label, ticks[3].Label}
	assert.Equal(t, []string{"0.1", "1", "10", "100"}, labels)

	assert.Equal(t, "1e-6", decadeLabel(-6))
	assert.LessOrEqual(t, len(decadeTicks(-20, 20)), 11)
}

func TestCropPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := 30; y < 40; y++ {
		for x := 20; x < 50; x++ {
			img.Set(x, y, color.Black)
		}
	}
	assert.Equal(t, image.Rect(20, 30, 50, 40), ContentBounds(img))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	cropped, err := CropPNG(buf.Bytes(), 2)
	require.NoError(t, err)

	out, err := png.Decode(bytes.NewReader(cropped))
	require.NoError(t, err)
	assert.Equal(t, 34, out.Bounds().Dx())
	assert.Equal(t, 14, out.Bounds().Dy())
}
