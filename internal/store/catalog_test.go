package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/learningcurves/internal/trace"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testTrace(runID string, created time.Time) *trace.Trace {
	d, l := 2.5, 7.0
	return &trace.Trace{
		RunID:    runID,
		Label:    "bcfw",
		Solver:   "frank-wolfe",
		LogEvery: 10,
		Created:  created,
		Snapshots: []trace.Snapshot{
			{Iteration: 10, Timestamp: 1, Primal: 9, Dual: &d},
			{Iteration: 20, Timestamp: 3.5, Primal: 4, Loss: &l},
		},
	}
}

func TestCatalog_RegisterAndGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := c.Register(ctx, "runs/a.ctrace", testTrace("run-a", created)); err != nil {
		t.Fatalf("Failed to register trace: %v", err)
	}

	info, err := c.Get(ctx, "run-a")
	if err != nil {
		t.Fatalf("Failed to get trace: %v", err)
	}
	if !filepath.IsAbs(info.Path) {
		t.Errorf("Expected absolute path, got %s", info.Path)
	}
	if info.Snapshots != 2 || info.LogEvery != 10 || info.Solver != "frank-wolfe" {
		t.Errorf("Unexpected info: %+v", info)
	}
	if info.FinalPrimal == nil || *info.FinalPrimal != 4 {
		t.Errorf("Expected final primal 4, got %v", info.FinalPrimal)
	}
	if info.BestDual == nil || *info.BestDual != 2.5 {
		t.Errorf("Expected best dual 2.5, got %v", info.BestDual)
	}
	if info.FinalLoss == nil || *info.FinalLoss != 7 {
		t.Errorf("Expected final loss 7, got %v", info.FinalLoss)
	}
	if info.Elapsed != 3.5 {
		t.Errorf("Expected elapsed 3.5, got %v", info.Elapsed)
	}
	if !info.Created.Equal(created) {
		t.Errorf("Expected created %v, got %v", created, info.Created)
	}
}

func TestCatalog_RegisterUpdates(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	tr := testTrace("run-a", time.Now())

	if err := c.Register(ctx, "a.ctrace", tr); err != nil {
		t.Fatalf("Failed to register trace: %v", err)
	}
	tr.Snapshots = append(tr.Snapshots, trace.Snapshot{Iteration: 30, Timestamp: 5, Primal: 3})
	tr.Resumes = []int{2}
	if err := c.Register(ctx, "a.ctrace", tr); err != nil {
		t.Fatalf("Failed to re-register trace: %v", err)
	}

	infos, err := c.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(infos))
	}
	if infos[0].Snapshots != 3 || infos[0].Resumes != 1 {
		t.Errorf("Expected updated entry, got %+v", infos[0])
	}
}

func TestCatalog_ListNewestFirst(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 48 * time.Hour, 24 * time.Hour}
		if err := c.Register(ctx, id+".ctrace", testTrace(id, base.Add(offsets[i]))); err != nil {
			t.Fatalf("Failed to register %s: %v", id, err)
		}
	}

	infos, err := c.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	got := []string{infos[0].RunID, infos[1].RunID, infos[2].RunID}
	want := []string{"newest", "middle", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

func TestCatalog_EmptyList(t *testing.T) {
	c := newTestCatalog(t)
	infos, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if infos == nil || len(infos) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", infos)
	}
}

func TestCatalog_Delete(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	if err := c.Register(ctx, "a.ctrace", testTrace("run-a", time.Now())); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if err := c.Delete(ctx, "run-a"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := c.Get(ctx, "run-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := c.Delete(ctx, "run-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestCatalog_RegisterRejectsMissingRunID(t *testing.T) {
	c := newTestCatalog(t)
	tr := testTrace("", time.Now())
	if err := c.Register(context.Background(), "a.ctrace", tr); err == nil {
		t.Error("Expected error for trace without run ID")
	}
}

func TestSummarize_EmptyTrace(t *testing.T) {
	info := Summarize("empty.ctrace", &trace.Trace{RunID: "x", LogEvery: 5})
	if info.FinalPrimal != nil || info.BestDual != nil || info.FinalLoss != nil {
		t.Errorf("Expected no values for empty trace, got %+v", info)
	}
	if info.Snapshots != 0 {
		t.Errorf("Expected 0 snapshots, got %d", info.Snapshots)
	}
}

func TestCatalog_Memory(t *testing.T) {
	c, err := OpenCatalog(":memory:")
	if err != nil {
		t.Fatalf("Failed to open memory catalog: %v", err)
	}
	defer c.Close()

	if err := c.Register(context.Background(), "a.ctrace", testTrace("m", time.Now())); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if _, err := c.Get(context.Background(), "m"); err != nil {
		t.Errorf("Expected entry in memory catalog, got %v", err)
	}
}
