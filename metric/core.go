package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all client-level metrics (not application-specific)
type Metrics struct {
	// Session metrics
	ServiceStatus    *prometheus.GaugeVec
	StageTransitions *prometheus.CounterVec
	GateWaitDuration prometheus.Histogram
	ErrorsTotal      *prometheus.CounterVec

	// Read path metrics
	PagesFetched    *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Control bus metrics
	BusPublished *prometheus.CounterVec

	// Health metrics
	HealthCheckStatus *prometheus.GaugeVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all client metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ledgerstream",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		StageTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledgerstream",
				Subsystem: "session",
				Name:      "stage_transitions_total",
				Help:      "Total number of session stage transitions",
			},
			[]string{"stage"},
		),

		GateWaitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "ledgerstream",
				Subsystem: "session",
				Name:      "gate_wait_seconds",
				Help:      "Time spent waiting for the publisher gate",
				Buckets:   prometheus.DefBuckets,
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledgerstream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		PagesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledgerstream",
				Subsystem: "read",
				Name:      "pages_total",
				Help:      "Total number of pages fetched from the server",
			},
			[]string{"target", "direction"},
		),

		EventsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledgerstream",
				Subsystem: "read",
				Name:      "events_total",
				Help:      "Total number of events delivered to readers",
			},
			[]string{"target"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ledgerstream",
				Subsystem: "request",
				Name:      "duration_seconds",
				Help:      "Server request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		BusPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledgerstream",
				Subsystem: "bus",
				Name:      "published_total",
				Help:      "Total number of control messages published on the bus",
			},
			[]string{"type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ledgerstream",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ledgerstream",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ledgerstream",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ledgerstream",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ledgerstream",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
			},
		),
	}
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordStageTransition increments the transition counter for a stage
func (c *Metrics) RecordStageTransition(stage string) {
	c.StageTransitions.WithLabelValues(stage).Inc()
}

// ObserveGateWait records the time a caller spent blocked on the gate
func (c *Metrics) ObserveGateWait(d time.Duration) {
	c.GateWaitDuration.Observe(d.Seconds())
}

// RecordError increments error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordPageFetched increments the fetched page counter
func (c *Metrics) RecordPageFetched(target, direction string) {
	c.PagesFetched.WithLabelValues(target, direction).Inc()
}

// RecordEventsDelivered adds delivered events for a read target
func (c *Metrics) RecordEventsDelivered(target string, count int) {
	c.EventsDelivered.WithLabelValues(target).Add(float64(count))
}

// ObserveRequestDuration records a server round-trip duration
func (c *Metrics) ObserveRequestDuration(operation string, d time.Duration) {
	c.RequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordBusPublish adds enqueued deliveries for a message type
func (c *Metrics) RecordBusPublish(messageType string, subscribers int) {
	c.BusPublished.WithLabelValues(messageType).Add(float64(subscribers))
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(state int) {
	c.NATSCircuitBreaker.Set(float64(state))
}
