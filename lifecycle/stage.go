package lifecycle

import "fmt"

// StageKind enumerates the three session stages.
type StageKind int

const (
	// StageInit means no publisher exists yet; outbound traffic waits
	StageInit StageKind = iota
	// StageAvailable means the session is ready and traffic flows
	StageAvailable
	// StageErrored means the session is permanently dead
	StageErrored
)

// String returns the string representation of StageKind
func (k StageKind) String() string {
	switch k {
	case StageInit:
		return "init"
	case StageAvailable:
		return "available"
	case StageErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Stage is a snapshot of the session stage. Reason is set only when
// Kind is StageErrored.
type Stage struct {
	Kind   StageKind
	Reason string
}

// Session terminal reasons. The exact strings are part of the client's
// observable behavior and are matched by callers and server tooling.
const (
	// ReasonInitFailed is recorded when any subsidiary service fails to
	// initialize.
	ReasonInitFailed = "failed to initialize"
	// ReasonConnectionClosed is recorded when the transport reports the
	// connection gone, including during a clean shutdown.
	ReasonConnectionClosed = "connection closed"
	// ReasonPublishAfterClose is carried by operations that reach the
	// transport after it has already closed.
	ReasonPublishAfterClose = "Connection Closed."
)

// TerminatedError is returned by the publisher gate, and by transport
// operations racing a shutdown, once the session will never become
// available again.
type TerminatedError struct {
	Reason string
}

// Error implements the error interface
func (e *TerminatedError) Error() string {
	return fmt.Sprintf("Terminated: %s", e.Reason)
}
