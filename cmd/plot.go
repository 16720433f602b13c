package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/learningcurves/internal/config"
	"github.com/cwbudde/learningcurves/internal/palette"
	"github.com/cwbudde/learningcurves/internal/plot"
	"github.com/cwbudde/learningcurves/internal/runs"
	"github.com/cwbudde/learningcurves/internal/server"
)

var plotFlags struct {
	configPath   string
	time         bool
	dual         bool
	loss         bool
	absoluteLoss bool
	save         string
	format       string
	palette      string
	colorOffset  int
	width        int
	height       int
	addr         string
	writeConfig  bool
}

var plotCmd = &cobra.Command{
	Use:   "plot TRACE...",
	Short: "Compare the convergence of recorded runs",
	Long: `Loads one or more trace files and draws log-log convergence charts.

By default the primal suboptimality relative to the best dual objective seen
across all runs is plotted. With --dual the primal and dual objectives are
drawn directly. With --loss a second chart shows the training error.

With --save the charts are written to PREFIX.<ext> and PREFIX_loss.<ext>;
otherwise they are served on --addr until interrupted.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if plotFlags.writeConfig {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runPlot,
}

func init() {
	f := plotCmd.Flags()
	f.StringVar(&plotFlags.configPath, "config", "", "YAML settings file (flags override its values)")
	f.BoolVar(&plotFlags.writeConfig, "write-config", false, "Write a default settings file to --config and exit")
	f.BoolVar(&plotFlags.time, "time", false, "Plot against training time in minutes instead of iterations")
	f.BoolVar(&plotFlags.dual, "dual", false, "Plot primal and dual objectives instead of primal suboptimality")
	f.BoolVar(&plotFlags.loss, "loss", false, "Also plot the training error")
	f.BoolVar(&plotFlags.absoluteLoss, "absolute-loss", false, "Plot the training error as recorded, not relative to the best")
	f.StringVar(&plotFlags.save, "save", "", "Write charts to PREFIX.<ext> and PREFIX_loss.<ext>")
	f.StringVar(&plotFlags.format, "format", "png", "Output format: png or svg")
	f.StringVar(&plotFlags.palette, "palette", "named", "Color palette: named or halton")
	f.IntVar(&plotFlags.colorOffset, "color-offset", 0, "Start offset into the Halton sequence")
	f.IntVar(&plotFlags.width, "width", plot.DefaultWidth, "Chart width in pixels")
	f.IntVar(&plotFlags.height, "height", plot.DefaultHeight, "Chart height in pixels")
	f.StringVar(&plotFlags.addr, "addr", "127.0.0.1:8080", "Viewer address when --save is not given")

	rootCmd.AddCommand(plotCmd)
}

// plotSettings loads the settings file and applies every flag the user set
// explicitly on top of it.
func plotSettings(cmd *cobra.Command) (config.PlotConfig, error) {
	cfg, err := config.Load(plotFlags.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("time") {
		cfg.XAxis = "iterations"
		if plotFlags.time {
			cfg.XAxis = "time"
		}
	}
	if changed("dual") {
		cfg.Dual = plotFlags.dual
	}
	if changed("loss") {
		cfg.Loss = plotFlags.loss
	}
	if changed("absolute-loss") {
		cfg.AbsoluteLoss = plotFlags.absoluteLoss
	}
	if changed("save") {
		cfg.Save = plotFlags.save
	}
	if changed("format") {
		cfg.Format = plotFlags.format
	}
	if changed("palette") {
		cfg.Palette = plotFlags.palette
	}
	if changed("color-offset") {
		cfg.ColorOffset = plotFlags.colorOffset
	}
	if changed("width") {
		cfg.Width = plotFlags.width
	}
	if changed("height") {
		cfg.Height = plotFlags.height
	}
	if changed("addr") {
		cfg.Addr = plotFlags.addr
	}
	return cfg, cfg.Validate()
}

func runPlot(cmd *cobra.Command, args []string) error {
	if plotFlags.writeConfig {
		if plotFlags.configPath == "" {
			return errors.New("--write-config requires --config")
		}
		if err := config.WriteDefault(plotFlags.configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", plotFlags.configPath)
		return nil
	}

	cfg, err := plotSettings(cmd)
	if err != nil {
		return err
	}
	format, err := plot.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	assigner, err := palette.New(cfg.Palette, cfg.ColorOffset)
	if err != nil {
		return err
	}

	set, err := runs.Load(args)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	set.Colorize(assigner)

	ref := runs.Reconcile(set, !cfg.Dual, cfg.Loss && !cfg.AbsoluteLoss)
	slog.Info("Reference values",
		"best_dual", ref.BestDual,
		"has_dual", ref.HasDual,
		"best_loss", ref.BestLoss,
	)

	opts := plot.Options{ShowLoss: cfg.Loss, Width: cfg.Width, Height: cfg.Height}
	if cfg.XAxis == "time" {
		opts.XAxis = plot.WallclockMinutes
	}
	arts, err := plot.Render(set, ref, opts)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if cfg.Save != "" {
		written, err := arts.Save(cfg.Save, format)
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		}
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		return nil
	}

	return serveCharts(cfg.Addr, arts)
}

// serveCharts runs the viewer until SIGINT or SIGTERM.
func serveCharts(addr string, arts *plot.Artifacts) error {
	srv, err := server.New(addr, arts)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
