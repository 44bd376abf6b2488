package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/ledgerstream/health"
	"github.com/c360/ledgerstream/metric"
)

// ServiceID identifies one of the subsidiary services whose readiness the
// orchestrator tracks. The set is fixed at compile time.
type ServiceID int

const (
	// ServiceConnectionManager owns the NATS connection to the server
	ServiceConnectionManager ServiceID = iota
	// ServiceDiscovery selects the server endpoint to dial
	ServiceDiscovery
	// ServiceTimer drives periodic keepalive and stats flushes
	ServiceTimer
)

// String returns the string representation of ServiceID
func (id ServiceID) String() string {
	switch id {
	case ServiceConnectionManager:
		return "connection-manager"
	case ServiceDiscovery:
		return "discovery"
	case ServiceTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// AllServices returns the full service set tracked by a client session.
func AllServices() []ServiceID {
	return []ServiceID{ServiceConnectionManager, ServiceDiscovery, ServiceTimer}
}

// Service is implemented by the subsidiary services the orchestrator
// tracks. Start registers bus subscriptions and begins reacting to
// SystemInit; Stop releases resources that survive the shutdown
// handshake. Services report readiness and termination on the bus, not
// through return values.
type Service interface {
	ID() ServiceID
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
	Health() health.Status
}

// Dependencies provides the shared infrastructure handed to the
// orchestrator and services at construction.
type Dependencies struct {
	Logger  *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
	Metrics *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWith returns a logger configured with service context
func (d *Dependencies) GetLoggerWith(service string) *slog.Logger {
	return d.GetLogger().With("service", service)
}

// CoreMetrics returns the core metric set or nil when metrics are disabled.
func (d *Dependencies) CoreMetrics() *metric.Metrics {
	if d.Metrics == nil {
		return nil
	}
	return d.Metrics.CoreMetrics()
}
