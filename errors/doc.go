// Package errors provides standardized error handling patterns for the
// LedgerStream client.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// Classification lets callers make retry and escalation decisions without
// hardcoded error string matching, and integrates with Go's standard error
// handling: errors.Is(), errors.As(), and wrapping chains all work through
// the classified types.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Client", "Connect", "dial")   // retryable
//	errors.WrapInvalid(err, "Settings", "Validate", "parse") // bad input
//	errors.WrapFatal(err, "Client", "Start", "subscribe")    // unrecoverable
//
// The generic Wrap() applies the format without forcing a class, preserving
// whatever classification the underlying error already carries.
//
// # Standard Error Variables
//
// Pre-defined variables cover the common client conditions:
//
//   - Service lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrShuttingDown
//   - Connection issues: ErrNoConnection, ErrConnectionLost, ErrConnectionTimeout
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//
// Use these instead of inventing new messages for the same condition, so that
// errors.Is() checks keep working across packages.
//
// # Context Cancellation
//
// context.DeadlineExceeded and context.Canceled classify as Transient, so a
// single IsTransient() check covers both network timeouts and context-based
// timeouts.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access; ClassifiedError values are
// safe to share across goroutines after creation.
//
// Note that stream read failures (deleted streams, access denial) are not
// classified here: they are typed values owned by the stream package, terminal
// for a single traversal rather than for the session.
package errors
