package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cwbudde/learningcurves/internal/trace"
)

const schema = `
CREATE TABLE IF NOT EXISTS traces (
	run_id        TEXT PRIMARY KEY,
	path          TEXT NOT NULL,
	label         TEXT NOT NULL DEFAULT '',
	solver        TEXT NOT NULL DEFAULT '',
	log_every     INTEGER NOT NULL,
	snapshots     INTEGER NOT NULL,
	resumes       INTEGER NOT NULL DEFAULT 0,
	final_primal  REAL,
	best_dual     REAL,
	final_loss    REAL,
	elapsed       REAL NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	registered_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_traces_created ON traces(created_at);
`

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Catalog implements Store on top of an SQLite database.
type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*Catalog)(nil)

// OpenCatalog opens (and creates if needed) the catalog database at path.
// Use ":memory:" for a throwaway catalog.
func OpenCatalog(path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if path == ":memory:" {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize catalog: %w", err)
		}
	}

	slog.Debug("Catalog opened", "path", path)
	return &Catalog{db: db, now: time.Now}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	return nil
}

// Register implements Store.
func (c *Catalog) Register(ctx context.Context, path string, t *trace.Trace) error {
	if t == nil {
		return fmt.Errorf("trace cannot be nil")
	}
	if t.RunID == "" {
		return fmt.Errorf("trace has no run ID")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve trace path: %w", err)
	}

	info := Summarize(abs, t)
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO traces (run_id, path, label, solver, log_every, snapshots, resumes,
			final_primal, best_dual, final_loss, elapsed, created_at, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			path = excluded.path,
			label = excluded.label,
			solver = excluded.solver,
			log_every = excluded.log_every,
			snapshots = excluded.snapshots,
			resumes = excluded.resumes,
			final_primal = excluded.final_primal,
			best_dual = excluded.best_dual,
			final_loss = excluded.final_loss,
			elapsed = excluded.elapsed,
			registered_at = excluded.registered_at`,
		info.RunID, info.Path, info.Label, info.Solver, info.LogEvery, info.Snapshots, info.Resumes,
		nullable(info.FinalPrimal), nullable(info.BestDual), nullable(info.FinalLoss), info.Elapsed,
		info.Created.UTC().Format(timeLayout), c.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to register trace %s: %w", info.RunID, err)
	}

	slog.Debug("Trace registered", "run_id", info.RunID, "path", abs)
	return nil
}

const selectColumns = `SELECT run_id, path, label, solver, log_every, snapshots, resumes,
	final_primal, best_dual, final_loss, elapsed, created_at, registered_at FROM traces`

// Get implements Store.
func (c *Catalog) Get(ctx context.Context, runID string) (TraceInfo, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+` WHERE run_id = ?`, runID)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TraceInfo{}, &NotFoundError{RunID: runID}
	}
	if err != nil {
		return TraceInfo{}, fmt.Errorf("failed to get trace %s: %w", runID, err)
	}
	return info, nil
}

// List implements Store.
func (c *Catalog) List(ctx context.Context) ([]TraceInfo, error) {
	rows, err := c.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	defer rows.Close()

	infos := []TraceInfo{}
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trace row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}

	slog.Debug("Listed traces", "count", len(infos))
	return infos, nil
}

// Delete implements Store.
func (c *Catalog) Delete(ctx context.Context, runID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM traces WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete trace %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete trace %s: %w", runID, err)
	}
	if n == 0 {
		return &NotFoundError{RunID: runID}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(s scanner) (TraceInfo, error) {
	var (
		info                        TraceInfo
		primal, dual, loss          sql.NullFloat64
		createdText, registeredText string
	)
	err := s.Scan(&info.RunID, &info.Path, &info.Label, &info.Solver, &info.LogEvery, &info.Snapshots,
		&info.Resumes, &primal, &dual, &loss, &info.Elapsed, &createdText, &registeredText)
	if err != nil {
		return TraceInfo{}, err
	}
	info.FinalPrimal = fromNullable(primal)
	info.BestDual = fromNullable(dual)
	info.FinalLoss = fromNullable(loss)
	if info.Created, err = time.Parse(timeLayout, createdText); err != nil {
		return TraceInfo{}, fmt.Errorf("bad created_at %q: %w", createdText, err)
	}
	if info.Registered, err = time.Parse(timeLayout, registeredText); err != nil {
		return TraceInfo{}, fmt.Errorf("bad registered_at %q: %w", registeredText, err)
	}
	return info, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
