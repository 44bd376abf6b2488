// Package bus provides the in-process publish/subscribe hub carrying the
// client's control messages.
//
// Subscriptions are keyed by concrete message type: bus.Subscribe[T]
// registers a handler for values of T, and bus.Publish[T] fans a value out
// to every subscriber of that type. Publish returns immediately; each
// subscription drains its own FIFO queue on a dedicated goroutine, so a
// message reaches every subscriber in publish order while a slow handler
// only delays its own deliveries. No ordering holds across different
// subscribers.
//
//	unsubscribe := bus.Subscribe(b, func(msg lifecycle.ServiceInitialized) {
//	    // runs on the subscription's goroutine
//	})
//	defer unsubscribe()
//
//	bus.Publish(b, lifecycle.ServiceInitialized{ID: lifecycle.ServiceDiscovery})
//
// Flush blocks until everything published before the call has been handled,
// which gives tests and shutdown paths a deterministic settling point
// without sleeps.
package bus
