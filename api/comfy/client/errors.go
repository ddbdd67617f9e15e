package client

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when no terminal event arrives within the run
// timeout.
var ErrTimeout = errors.New("generation timeout exceeded")

// ProtocolError carries an execution failure reported by the remote
// engine, verbatim.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// UploadError reports a failed input-asset upload; the job terminates
// before submission.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
