package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrCanceled is returned by Process and Run after Cancel.
	ErrCanceled = errors.New("stream canceled")
	// ErrBusy is returned when a stream is already being processed.
	ErrBusy = errors.New("stream already in progress")
)

// Error is a stream failure. The writer moves to StatusError and drops its
// pending entries; a new stream must be queued to recover.
type Error struct {
	// Op is the failed operation, e.g. "read".
	Op string
	// Seq is the 1-based number of the entry being obtained.
	Seq int
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stream: %s entry %d: %v", e.Op, e.Seq, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
