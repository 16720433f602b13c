package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/learningcurves/internal/store"
	"github.com/cwbudde/learningcurves/internal/trace"
)

const defaultCatalog = "data/traces.db"

var (
	catalogPath   string
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var tracesCmd = &cobra.Command{
	Use:   "traces",
	Short: "Manage recorded traces",
	Long:  `List and clean the traces registered in the catalog by the record command.`,
}

var listTracesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered traces",
	RunE:  runListTraces,
}

var cleanTracesCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old traces",
	Long: `Delete traces based on a retention policy: keep only the newest N,
delete those older than N days, or both.`,
	RunE: runCleanTraces,
}

func init() {
	rootCmd.AddCommand(tracesCmd)
	tracesCmd.AddCommand(listTracesCmd)
	tracesCmd.AddCommand(cleanTracesCmd)

	tracesCmd.PersistentFlags().StringVar(&catalogPath, "catalog", defaultCatalog, "Trace catalog database")

	cleanTracesCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N traces (0 = keep all)")
	cleanTracesCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete traces older than N days (0 = no age limit)")
	cleanTracesCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListTraces(cmd *cobra.Command, args []string) error {
	cat, err := store.OpenCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	infos, err := cat.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list traces: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No traces found.")
		return nil
	}
	printTraces(out, infos)
	fmt.Fprintf(out, "\nTotal traces: %d\n", len(infos))
	return nil
}

func printTraces(out io.Writer, infos []store.TraceInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tCREATED\tLABEL\tSOLVER\tSNAPSHOTS\tPRIMAL\tDUAL\tLOSS\tPATH")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			shortID(info.RunID),
			info.Created.Local().Format("2006-01-02 15:04:05"),
			info.Label,
			info.Solver,
			info.Snapshots,
			formatOptional(info.FinalPrimal),
			formatOptional(info.BestDual),
			formatOptional(info.FinalLoss),
			info.Path,
		)
	}
	w.Flush()
}

func runCleanTraces(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	cat, err := store.OpenCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	ctx := commandContext(cmd)
	infos, err := cat.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list traces: %w", err)
	}

	out := cmd.OutOrStdout()
	toDelete := selectTracesForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No traces match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d trace(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s %s (%s)\n", shortID(info.RunID), info.Path, info.Created.Local().Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := deleteTraces(ctx, cat, toDelete)
	fmt.Fprintf(out, "\nDeleted %d trace(s), %d failed.\n", deleted, failed)
	return nil
}

// deleteTraces removes each trace file, then its catalog entry. An entry is
// kept when its file could not be removed.
func deleteTraces(ctx context.Context, s store.Store, infos []store.TraceInfo) (deleted, failed int) {
	for _, info := range infos {
		if err := trace.Delete(info.Path); err != nil {
			slog.Error("Failed to delete trace file", "run_id", info.RunID, "path", info.Path, "error", err)
			failed++
			continue
		}
		if err := s.Delete(ctx, info.RunID); err != nil {
			slog.Error("Failed to delete catalog entry", "run_id", info.RunID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted trace", "run_id", info.RunID, "path", info.Path)
		deleted++
	}
	return deleted, failed
}

// selectTracesForDeletion applies the retention policy. Both rules may
// select the same trace; it is returned once.
func selectTracesForDeletion(infos []store.TraceInfo, keepLast, olderThanDays int, now time.Time) []store.TraceInfo {
	var toDelete []store.TraceInfo
	selected := make(map[string]bool)
	add := func(info store.TraceInfo) {
		if !selected[info.RunID] {
			selected[info.RunID] = true
			toDelete = append(toDelete, info)
		}
	}

	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Created.Before(cutoff) {
				add(info)
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := slices.Clone(infos)
		slices.SortStableFunc(sorted, func(a, b store.TraceInfo) int {
			return a.Created.Compare(b.Created)
		})
		for _, info := range sorted[:len(sorted)-keepLast] {
			add(info)
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
