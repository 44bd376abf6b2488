// Package lifecycle coordinates the startup and shutdown of a client
// session and gates all outbound traffic on the result.
//
// # Stage Machine
//
// A session moves through exactly three stages:
//
//	Init ──────► Available(handle)
//	  │               │
//	  └───────────────┴──► Errored(reason)    (terminal)
//
// The Orchestrator starts with both pending sets full and the stage at
// Init. Services report over the bus; when the last one reports
// initialized, the stage becomes Available and the publisher handle is
// released to callers. Any initialization failure, or the transport
// reporting the connection gone, moves the stage to Errored. Errored is
// terminal: the first recorded reason survives every later message.
//
// # Publisher Gate
//
// AcquirePublisher is the single synchronization point between "still
// starting" and "usable or dead". Callers acquire per operation:
//
//	publisher, err := orch.AcquirePublisher(ctx)
//	if err != nil {
//	    var terminated *lifecycle.TerminatedError
//	    if errors.As(err, &terminated) {
//	        // session is permanently gone; terminated.Reason says why
//	    }
//	    return err
//	}
//
// While the stage is Init the call parks without consuming CPU; every
// stage change wakes all parked callers at once, each of which
// re-evaluates the stage before returning.
//
// # Shutdown Handshake
//
// RequestShutdown publishes SystemShutdown; each service winds down and
// reports ServiceTerminated; the transport emits ShutdownSignal when the
// connection actually drops, which seals the gate; Done() closes once
// the termination set drains. The orchestrator never retries a failed
// service, it only aggregates what the services report.
package lifecycle
