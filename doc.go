// Package ledgerstream is the official Go client for LedgerStream, a
// NATS-backed event-sourcing database.
//
// # Session model
//
// A Client is one session. Connect wires up the session's control
// plane (an in-process event bus, the lifecycle orchestrator, and
// three subsidiary services: connection manager, endpoint discovery,
// timer) and kicks off initialization. The session becomes available
// once every service has reported in; until then, operations suspend
// on the publisher gate. A failed initialization or a lost connection
// seals the gate permanently: every subsequent operation fails fast
// with lifecycle.TerminatedError rather than hanging.
//
//	settings := config.DefaultSettings()
//	client, err := ledgerstream.Connect(ctx, settings)
//	if err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
// # Reading
//
// Reads are lazy pull-based traversals: the client fetches one bounded
// page at a time and yields events as the caller consumes them, so a
// stream of any length can be read in constant memory.
//
//	for event, err := range client.ReadStreamForward(ctx, "orders-42", stream.StreamStart) {
//		if err != nil {
//			return err // deleted, access denied, or a read failure
//		}
//		process(event)
//	}
//
// The global stream spanning all named streams is read the same way
// through ReadAllForward and ReadAllBackward, cursored by
// stream.Position instead of stream.EventNumber. ReadThrough is the
// general entry point for custom outcome classification.
//
// # Writing
//
// AppendToStream and DeleteStream route through the same publisher
// gate as reads, with optimistic concurrency via
// stream.ExpectedRevision.
package ledgerstream
