// Package natsclient owns the NATS transport of a LedgerStream
// session: the connection itself, the wire codec, and the
// connection-manager service the orchestrator tracks.
//
// # Client
//
// Client dials one endpoint at a time and guards redials with a
// circuit breaker: after a run of consecutive failures the breaker
// opens, dial attempts fail fast with ErrCircuitOpen, and the breaker
// half-opens again after a doubling backoff. Connection status is
// tracked atomically and exported through the session metric set.
//
// # Wire codec
//
// Every server operation is a JSON request/reply exchange on a
// ledger.* subject: page reads of named streams and of the global
// stream (both directions), appends, deletes, and liveness pings. The
// reply's verdict string maps onto stream.BatchOutcome; classification
// into typed errors happens in the stream package, not here. A closed
// client fails every operation with lifecycle.TerminatedError — once
// the transport is gone nothing sent through it can succeed.
//
// # Manager
//
// Manager is the lifecycle service wrapping the Client. On SystemInit
// it dials, rotating endpoints through discovery and backing off
// between attempts, then reports ServiceInitialized; exhaustion
// reports ServiceInitFailed and kills the session. The transport's
// final-close callback publishes ShutdownSignal, sealing the publisher
// gate, and timer ticks drive keepalive RTT probes.
package natsclient
