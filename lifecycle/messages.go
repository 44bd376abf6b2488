package lifecycle

// Control messages exchanged over the bus. The orchestrator consumes the
// service-reported messages and publishes the system-wide ones; services
// do the reverse.

// SystemInit tells subsidiary services to begin initializing. Published
// once per session, after the orchestrator's subscriptions are in place.
type SystemInit struct{}

// SystemShutdown asks every service to terminate. Published on
// initialization failure, on a reported fatal error, and on an explicit
// close.
type SystemShutdown struct{}

// ServiceInitialized reports that a service is ready for traffic.
type ServiceInitialized struct {
	ID ServiceID
}

// ServiceInitFailed reports that a service could not initialize. A single
// failure is fatal for the whole session.
type ServiceInitFailed struct {
	ID  ServiceID
	Err error
}

// Fatal reports an unrecoverable error from any component. The
// orchestrator logs the cause and drives the session toward shutdown.
type Fatal struct {
	Cause error
}

// ServiceTerminated reports that a service has finished shutting down.
type ServiceTerminated struct {
	ID ServiceID
}

// ShutdownSignal is emitted by the transport when the connection is
// gone for good. It closes the publisher gate: the session stage becomes
// Errored("connection closed") if no earlier failure was recorded.
type ShutdownSignal struct{}
