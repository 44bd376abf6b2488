// Package stream implements the demand-driven read path of the client:
// cursor types, read-target identities, page classification, and the
// traversal engine that turns paged fetches into a lazy event sequence.
//
// # Targets and cursors
//
// A read addresses either a named stream or the global stream spanning
// the whole ledger. The two use different cursor types, and the
// Identity interface ties each target to its cursor at compile time:
//
//	stream.ByName("orders-1042")  // Identity[EventNumber]
//	stream.All()                  // Identity[Position]
//
// The identity set is closed. Code generic over Cursor can work with
// either target, but cannot pair a target with the wrong cursor type
// or introduce a third target.
//
// # Traversal
//
// Events builds a lazy sequence over a FetchFunc. Pages are fetched
// one at a time, only as the consumer advances, with never more than
// one fetch outstanding:
//
//	events := stream.Events(ctx, fetch, stream.StreamStart)
//	for event, err := range events {
//		if err != nil {
//			return err
//		}
//		handle(event)
//	}
//
// The error, when one arrives, is the final element of the sequence.
// End of stream and failure are distinct: a sequence that ends without
// an error element read everything there was to read.
//
// # Classification
//
// A Fetcher reports raw server outcomes; classification maps them to
// pages or typed errors. For named streams the defaults treat missing
// and unchanged streams as empty reads, deleted streams as
// StreamDeletedError, and rejected access as AccessDeniedError, with
// ReadFailureError covering the rest. A Classifier overrides these
// rules per call, for named streams only; global reads always use the
// built-in rules, which never produce StreamDeletedError or
// NoStreamError because the global stream always exists.
package stream
