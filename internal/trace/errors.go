package trace

import "strconv"

// ErrCorruptTrace matches any *CorruptTraceError with errors.Is.
var ErrCorruptTrace = &CorruptTraceError{}

// CorruptTraceError is returned when a persisted trace cannot be read or is
// not compatible with the current schema.
type CorruptTraceError struct {
	Path   string
	Line   int // 1-based line in the container, 0 when not line specific
	Reason string
	Err    error
}

func (e *CorruptTraceError) Error() string {
	msg := "corrupt trace"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Line > 0 {
		msg += " (line " + strconv.Itoa(e.Line) + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptTraceError) Unwrap() error { return e.Err }

func (e *CorruptTraceError) Is(target error) bool {
	_, ok := target.(*CorruptTraceError)
	return ok
}

// ErrEmptyTrace matches any *EmptyTraceError with errors.Is.
var ErrEmptyTrace = &EmptyTraceError{}

// EmptyTraceError flags a trace without snapshots.
type EmptyTraceError struct {
	Path string
}

func (e *EmptyTraceError) Error() string {
	if e.Path != "" {
		return "trace has no snapshots: " + e.Path
	}
	return "trace has no snapshots"
}

func (e *EmptyTraceError) Is(target error) bool {
	_, ok := target.(*EmptyTraceError)
	return ok
}

// ValidationError reports a trace that breaks a schema invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
