package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/cwbudde/learningcurves/internal/trace"
)

// resetPlotFlags restores every plot flag to its default and clears the
// changed marks left behind by earlier tests.
func resetPlotFlags(t *testing.T) {
	t.Helper()
	plotCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("Failed to reset --%s: %v", f.Name, err)
		}
		f.Changed = false
	})
}

func writeTrace(t *testing.T, dir, name string, withDual bool) string {
	t.Helper()
	rec := trace.NewRecorder(1)
	for i := 1; i <= 20; i++ {
		var opts []trace.MeasureOption
		if withDual {
			opts = append(opts, trace.WithDual(1-1/float64(i)))
		}
		opts = append(opts, trace.WithLoss(100/float64(i)))
		rec.Record(i, 1+10/float64(i), opts...)
	}
	path := filepath.Join(dir, name+trace.Ext)
	if err := rec.Persist(path); err != nil {
		t.Fatalf("Failed to persist trace: %v", err)
	}
	return path
}

func TestPlotSettings_FlagsOverrideConfig(t *testing.T) {
	resetPlotFlags(t)
	defer resetPlotFlags(t)

	cfgPath := filepath.Join(t.TempDir(), "plot.yaml")
	content := "version: 1\nx_axis: time\nloss: true\nformat: svg\npalette: halton\ncolor_offset: 3\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	flags := plotCmd.Flags()
	for name, value := range map[string]string{
		"config": cfgPath,
		"format": "png",
		"dual":   "true",
	} {
		if err := flags.Set(name, value); err != nil {
			t.Fatalf("Failed to set --%s: %v", name, err)
		}
	}

	cfg, err := plotSettings(plotCmd)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.XAxis != "time" {
		t.Errorf("Expected x axis from file, got %s", cfg.XAxis)
	}
	if !cfg.Loss {
		t.Error("Expected loss from file")
	}
	if cfg.Palette != "halton" || cfg.ColorOffset != 3 {
		t.Errorf("Expected halton palette at offset 3, got %s at %d", cfg.Palette, cfg.ColorOffset)
	}
	if cfg.Format != "png" {
		t.Errorf("Expected --format to override the file, got %s", cfg.Format)
	}
	if !cfg.Dual {
		t.Error("Expected --dual to be applied")
	}
}

func TestPlotSettings_InvalidFlag(t *testing.T) {
	resetPlotFlags(t)
	defer resetPlotFlags(t)

	if err := plotCmd.Flags().Set("palette", "rainbow"); err != nil {
		t.Fatal(err)
	}
	if _, err := plotSettings(plotCmd); err == nil {
		t.Error("Expected error for unknown palette")
	}
}

func TestPlotCommand_Save(t *testing.T) {
	resetPlotFlags(t)
	defer resetPlotFlags(t)

	dir := t.TempDir()
	a := writeTrace(t, dir, "run_sgd", true)
	b := writeTrace(t, dir, "run_sdca", true)
	prefix := filepath.Join(dir, "out", "curves")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"plot", a, b, "--loss", "--format", "svg", "--save", prefix})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, path := range []string{prefix + ".svg", prefix + "_loss.svg"} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Expected %s to be written: %v", path, err)
		}
		if !bytes.Contains(data, []byte("<svg")) {
			t.Errorf("Expected SVG content in %s", path)
		}
	}
	if !strings.Contains(out.String(), "curves_loss.svg") {
		t.Errorf("Expected written paths in output, got %q", out.String())
	}
}

func TestPlotCommand_LoadFailureNamesPath(t *testing.T) {
	resetPlotFlags(t)
	defer resetPlotFlags(t)

	dir := t.TempDir()
	good := writeTrace(t, dir, "good", false)
	missing := filepath.Join(dir, "missing"+trace.Ext)
	prefix := filepath.Join(dir, "never")

	rootCmd.SetArgs([]string{"plot", good, missing, "--save", prefix})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("Expected error for missing trace")
	}
	if !strings.Contains(err.Error(), "load") || !strings.Contains(err.Error(), missing) {
		t.Errorf("Expected load error naming %s, got %v", missing, err)
	}
	if _, err := os.Stat(prefix + ".png"); !os.IsNotExist(err) {
		t.Error("Expected nothing to be rendered after a load failure")
	}
}

func TestPlotCommand_RequiresPath(t *testing.T) {
	resetPlotFlags(t)
	defer resetPlotFlags(t)

	rootCmd.SetArgs([]string{"plot"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err == nil {
		t.Error("Expected error without trace paths")
	}
}
