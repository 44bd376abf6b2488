// Package metric provides Prometheus-based metrics collection for the
// LedgerStream client.
//
// The package offers a centralized metrics registry managing both core client
// metrics (session stage, read throughput, NATS health) and custom metrics
// registered by the embedding application. The registry exposes an HTTP
// handler in Prometheus format; the application decides where to mount it,
// the client never opens a listening socket itself.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	http.Handle("/metrics", registry.Handler())
//
// Core metrics are recorded through typed helpers rather than label strings
// scattered around the codebase:
//
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordPageFetched("orders", "forward")
//	coreMetrics.RecordEventsDelivered("orders", 500)
//	coreMetrics.RecordNATSReconnect()
//
// # Core Metrics
//
// The registry automatically registers client metrics tracking:
//
//   - Session lifecycle: service status, stage transitions, gate wait time
//   - Read path: pages fetched, events delivered, request durations
//   - Control bus: published message fan-out
//   - NATS connectivity: connection status, RTT, reconnects, circuit breaker
//   - Error tracking: errors_total by component and class
//
// # Custom Metrics
//
// Applications register their own collectors under a namespaced key, with
// duplicate registration rejected both locally and by Prometheus:
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "myapp_replays_total",
//	    Help: "Total number of stream replays",
//	})
//	if err := registry.RegisterCounter("myapp", "replays_total", counter); err != nil {
//	    return err
//	}
//
// All registration methods are safe for concurrent use.
package metric
