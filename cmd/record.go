package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/learningcurves/internal/opt"
	"github.com/cwbudde/learningcurves/internal/store"
	"github.com/cwbudde/learningcurves/internal/trace"
)

var recordFlags struct {
	optimizer string
	objective string
	dim       int
	iters     int
	popSize   int
	seed      int64
	logEvery  int
	out       string
	label     string
	resume    string
	catalog   string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an optimizer run on a benchmark objective",
	Long: `Runs an optimizer on a benchmark objective and writes its best-so-far
cost to a trace file. With --resume the run continues an existing trace.
The trace is registered in the catalog unless --catalog is empty.`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordFlags.optimizer, "optimizer", "mayfly", "Optimizer: mayfly, neldermead, bfgs")
	f.StringVar(&recordFlags.objective, "objective", "sphere", "Objective: sphere, rosenbrock")
	f.IntVar(&recordFlags.dim, "dim", 10, "Number of parameters")
	f.IntVar(&recordFlags.iters, "iters", 100, "Max iterations")
	f.IntVar(&recordFlags.popSize, "pop", 30, "Population size (mayfly)")
	f.Int64Var(&recordFlags.seed, "seed", 42, "Random seed (mayfly)")
	f.IntVar(&recordFlags.logEvery, "log-every", 10, "Record every N-th iteration")
	f.StringVar(&recordFlags.out, "out", "run"+trace.Ext, "Trace output path")
	f.StringVar(&recordFlags.label, "label", "", "Run label stored in the trace")
	f.StringVar(&recordFlags.resume, "resume", "", "Continue recording into this trace")
	f.StringVar(&recordFlags.catalog, "catalog", defaultCatalog, "Trace catalog database (empty to skip)")

	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	obj, err := opt.LookupObjective(recordFlags.objective)
	if err != nil {
		return err
	}
	if recordFlags.dim <= 0 {
		return fmt.Errorf("--dim must be positive, got %d", recordFlags.dim)
	}

	recOpts := []trace.RecorderOption{trace.WithSolver(recordFlags.optimizer)}
	if recordFlags.label != "" {
		recOpts = append(recOpts, trace.WithLabel(recordFlags.label))
	}

	var rec *trace.Recorder
	if recordFlags.resume != "" {
		prev, err := trace.Load(recordFlags.resume)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		rec = trace.Resume(prev, recOpts...)
	} else {
		rec = trace.NewRecorder(recordFlags.logEvery, recOpts...)
	}

	optimizer, err := opt.New(recordFlags.optimizer, recordFlags.iters, recordFlags.popSize, recordFlags.seed, rec)
	if err != nil {
		return err
	}

	slog.Info("Starting optimization",
		"optimizer", recordFlags.optimizer,
		"objective", obj.Name,
		"dim", recordFlags.dim,
		"iters", recordFlags.iters,
	)

	lower, upper := obj.Bounds(recordFlags.dim)
	start := time.Now()
	_, cost := optimizer.Run(obj.Func, lower, upper, recordFlags.dim)
	elapsed := time.Since(start)

	if err := rec.Persist(recordFlags.out); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	slog.Info("Optimization complete",
		"elapsed", elapsed,
		"final_cost", cost,
		"snapshots", rec.Len(),
	)

	if recordFlags.catalog != "" {
		if err := registerTrace(commandContext(cmd), recordFlags.catalog, recordFlags.out, rec.Trace()); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d snapshots, cost %.6g)\n", recordFlags.out, rec.Len(), cost)
	return nil
}

func registerTrace(ctx context.Context, catalogPath, path string, t *trace.Trace) error {
	cat, err := store.OpenCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	if err := cat.Register(ctx, path, t); err != nil {
		return fmt.Errorf("failed to register trace: %w", err)
	}
	return nil
}
