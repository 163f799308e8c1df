package bridge

import (
	"errors"
	"fmt"
	"time"
)

// ErrProcessUnavailable is returned by Call when there is no live worker to
// send to: before the first successful start, after Close, or after the
// restart budget has been exhausted.
var ErrProcessUnavailable = errors.New("no live worker process")

// ProcessExitedError is the rejection for requests that were in flight when
// the worker exited.
type ProcessExitedError struct {
	ExitCode int
}

func (e *ProcessExitedError) Error() string {
	return fmt.Sprintf("worker process exited with code %d", e.ExitCode)
}

// TimeoutError is the rejection for requests whose deadline elapsed before a
// matching response frame arrived.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %s", e.Op, e.Timeout)
}

// DecodeError is the rejection for response frames that no decoder in the
// fallback chain could parse. Frame carries the raw text for diagnosis.
type DecodeError struct {
	Frame string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response frame %q: %s", e.Frame, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError is returned by Call when writing the request line to the
// worker's stdin fails. The request is never enqueued in that case.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing request %q to worker stdin: %s", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
