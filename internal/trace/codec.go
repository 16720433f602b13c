package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// Ext is the file extension of persisted traces.
	Ext = ".ctrace"

	// FormatName identifies the container in its header line.
	FormatName = "learningcurves/trace"

	// FormatVersion is the newest container version this package reads and
	// the version it writes.
	FormatVersion = 1
)

// header is the first JSON line of a persisted trace. Snapshots follow as one
// JSON object per line, in recording order.
type header struct {
	Format    string `json:"format"`
	Version   int    `json:"version"`
	Snapshots int    `json:"snapshots"`
	Trace
}

// Encode writes t to w in the versioned JSONL container format.
func Encode(w io.Writer, t *Trace) error {
	bw := bufio.NewWriterSize(w, 64*1024) // 64KB buffer

	data, err := json.Marshal(header{
		Format:    FormatName,
		Version:   FormatVersion,
		Snapshots: len(t.Snapshots),
		Trace:     *t,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trace header: %w", err)
	}
	if err := writeLine(bw, data); err != nil {
		return err
	}

	for i, s := range t.Snapshots {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot %d: %w", i, err)
		}
		if err := writeLine(bw, data); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	return nil
}

func writeLine(w *bufio.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write trace line: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Decode reads a trace written by Encode. Any malformed, truncated or
// schema-incompatible input yields a *CorruptTraceError.
func Decode(r io.Reader) (*Trace, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 64KB initial, 1MB max

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, &CorruptTraceError{Line: 1, Reason: "failed to read header", Err: err}
		}
		return nil, &CorruptTraceError{Reason: "missing header"}
	}

	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		return nil, &CorruptTraceError{Line: 1, Reason: "failed to unmarshal header", Err: err}
	}
	if h.Format != FormatName {
		return nil, &CorruptTraceError{Line: 1, Reason: fmt.Sprintf("unknown format %q", h.Format)}
	}
	if h.Version < 1 || h.Version > FormatVersion {
		return nil, &CorruptTraceError{Line: 1, Reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	if h.Snapshots < 0 {
		return nil, &CorruptTraceError{Line: 1, Reason: "negative snapshot count"}
	}

	t := h.Trace
	t.Snapshots = make([]Snapshot, 0, h.Snapshots)

	line := 1
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var s Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			return nil, &CorruptTraceError{Line: line, Reason: "failed to unmarshal snapshot", Err: err}
		}
		t.Snapshots = append(t.Snapshots, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, &CorruptTraceError{Line: line + 1, Reason: "failed to scan snapshot", Err: err}
	}

	if len(t.Snapshots) != h.Snapshots {
		return nil, &CorruptTraceError{
			Reason: fmt.Sprintf("header announces %d snapshots, found %d", h.Snapshots, len(t.Snapshots)),
		}
	}
	if err := t.Validate(); err != nil {
		return nil, &CorruptTraceError{Reason: "schema violation", Err: err}
	}

	return &t, nil
}
