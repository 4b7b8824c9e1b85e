package gridcore

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates a configuration value outside its allowed range.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrStreaming indicates an action that is not allowed while a stream is
// writing into the session.
var ErrStreaming = errors.New("stream in progress")

// ActionError reports a session action that was rejected.
type ActionError struct {
	Action string // "edit", "format", "paste", "clear", "insert_rows", ...
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func newActionError(action string, err error) *ActionError {
	return &ActionError{
		Action: action,
		Err:    err,
	}
}
