// Package ierr defines the structured error kinds used across the indexing
// core: IoError, RangeError, PbfParseError, and the internal Interrupted
// control signal used to unwind a worker.
package ierr

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned by a queue Pop once Interrupt has been called
// and no further items are pending. It is a control signal, not a
// user-visible failure, and worker loops exit quietly on it.
var ErrInterrupted = errors.New("interrupted")

// IoError wraps an open/seek/mmap/mremap/ftruncate failure with the path
// and OS-level cause that produced it.
type IoError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error during %s on %q: %v", e.Op, e.Path, e.Cause)
}

func (e *IoError) Unwrap() error { return e.Cause }

// NewIoError builds an IoError, preserving Cause for errors.Is/As.
func NewIoError(op, path string, cause error) *IoError {
	return &IoError{Op: op, Path: path, Cause: cause}
}

// RangeError is raised by Read/ReadMut when the requested region falls
// outside the current mapping or file size, or when a zero-size read is
// requested (rejected explicitly rather than silently treated as a no-op,
// since the source's off-by-one wraparound on size==0 is a defect, not a
// feature).
type RangeError struct {
	Pos, Size, Limit int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error: read [%d, %d) exceeds limit %d", e.Pos, e.Pos+e.Size, e.Limit)
}

// PbfParseError records a failed protobuf decode: the message type name,
// the underlying cause, and the file offset the decode started at.
type PbfParseError struct {
	TypeName string
	Offset   int64
	Cause    error
}

func (e *PbfParseError) Error() string {
	return fmt.Sprintf("failed to parse %s at offset %d: %v", e.TypeName, e.Offset, e.Cause)
}

func (e *PbfParseError) Unwrap() error { return e.Cause }
