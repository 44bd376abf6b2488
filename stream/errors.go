package stream

import (
	"errors"
	"fmt"
)

// StreamDeletedError reports a read against a named stream that has
// been deleted. Only named-stream classification produces it; the
// global stream cannot be deleted.
type StreamDeletedError struct {
	Stream string
}

func (e *StreamDeletedError) Error() string {
	return fmt.Sprintf("stream %q has been deleted", e.Stream)
}

// NoStreamError reports a read against a named stream that does not
// exist. The default classification treats a missing stream as an
// empty read instead; a custom classifier can surface this error when
// absence should be distinguished from emptiness.
type NoStreamError struct {
	Stream string
}

func (e *NoStreamError) Error() string {
	return fmt.Sprintf("stream %q does not exist", e.Stream)
}

// AccessDeniedError reports a read rejected by server-side access
// checks.
type AccessDeniedError struct {
	Target string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access to %q denied", e.Target)
}

// WrongExpectedRevisionError reports a write rejected because the
// stream tail did not match the request's expected revision.
type WrongExpectedRevisionError struct {
	Stream   string
	Expected ExpectedRevision
	Actual   EventNumber
}

func (e *WrongExpectedRevisionError) Error() string {
	return fmt.Sprintf("append to %q expected revision %d, stream is at %d", e.Stream, e.Expected, e.Actual)
}

// ReadFailureError reports a read that failed for a reason outside
// the taxonomy above: a generic server error or a transport failure.
type ReadFailureError struct {
	Target  string
	Message string
	cause   error
}

// NewReadFailure builds a ReadFailureError from a server-provided
// message. Custom classifiers use it to surface the generic case.
func NewReadFailure(target, message string) *ReadFailureError {
	return &ReadFailureError{Target: target, Message: message}
}

func (e *ReadFailureError) Error() string {
	return fmt.Sprintf("read of %q failed: %s", e.Target, e.Message)
}

// Unwrap exposes the transport failure behind the read failure, when
// there is one.
func (e *ReadFailureError) Unwrap() error {
	return e.cause
}

// IsWrongExpectedRevision reports whether err is a
// WrongExpectedRevisionError.
func IsWrongExpectedRevision(err error) bool {
	var target *WrongExpectedRevisionError
	return errors.As(err, &target)
}

// IsStreamDeleted reports whether err is a StreamDeletedError.
func IsStreamDeleted(err error) bool {
	var target *StreamDeletedError
	return errors.As(err, &target)
}

// IsNoStream reports whether err is a NoStreamError.
func IsNoStream(err error) bool {
	var target *NoStreamError
	return errors.As(err, &target)
}

// IsAccessDenied reports whether err is an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var target *AccessDeniedError
	return errors.As(err, &target)
}
