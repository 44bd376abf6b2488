package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-service", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	names := gatherNames(t, registry)
	assert.True(t, names["test_counter"], "Counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterGaugeAndHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})

	require.NoError(t, registry.RegisterGauge("test-service", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("test-service", "test_histogram", histogram))

	gauge.Set(42.0)
	histogram.Observe(1.5)

	names := gatherNames(t, registry)
	assert.True(t, names["test_gauge"])
	assert.True(t, names["test_histogram"])
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})
	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // Same help to avoid Prometheus validation error
	})

	err := registry.RegisterCounter("service1", "duplicate_counter", counter1)
	require.NoError(t, err)

	// Same local key
	err = registry.RegisterCounter("service1", "duplicate_counter", counter1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metric registration")

	// Different key, same Prometheus name
	err = registry.RegisterCounter("service2", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	require.NoError(t, registry.RegisterCounter("test-service", "unregister_counter", counter))
	assert.True(t, gatherNames(t, registry)["unregister_counter"])

	assert.True(t, registry.Unregister("test-service", "unregister_counter"))
	assert.False(t, gatherNames(t, registry)["unregister_counter"])

	// Unregistering again reports false
	assert.False(t, registry.Unregister("test-service", "unregister_counter"))
}

func TestCoreMetrics_Recording(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordServiceStatus("connection-manager", 2)
	core.RecordStageTransition("available")
	core.ObserveGateWait(15 * time.Millisecond)
	core.RecordPageFetched("orders", "forward")
	core.RecordEventsDelivered("orders", 500)
	core.ObserveRequestDuration("read_stream", 20*time.Millisecond)
	core.RecordBusPublish("lifecycle.ServiceInitialized", 2)
	core.RecordHealthStatus("discovery", true)
	core.RecordNATSStatus(true)
	core.RecordNATSRTT(3 * time.Millisecond)
	core.RecordNATSReconnect()
	core.RecordCircuitBreakerState(1)

	names := gatherNames(t, registry)
	for _, want := range []string{
		"ledgerstream_service_status",
		"ledgerstream_session_stage_transitions_total",
		"ledgerstream_session_gate_wait_seconds",
		"ledgerstream_read_pages_total",
		"ledgerstream_read_events_total",
		"ledgerstream_request_duration_seconds",
		"ledgerstream_bus_published_total",
		"ledgerstream_health_status",
		"ledgerstream_nats_connected",
		"ledgerstream_nats_rtt_milliseconds",
		"ledgerstream_nats_reconnects_total",
		"ledgerstream_nats_circuit_breaker",
	} {
		assert.True(t, names[want], "expected metric family %s", want)
	}
}

func TestMetricsRegistry_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordNATSStatus(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledgerstream_nats_connected")
}
