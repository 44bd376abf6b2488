package bus

import "github.com/c360/ledgerstream/metric"

// busMetrics adapts the core metric set to the bus's needs.
type busMetrics struct {
	core *metric.Metrics
}

func (m *busMetrics) recordPublish(messageType string, subscribers int) {
	m.core.RecordBusPublish(messageType, subscribers)
}

// WithMetrics records publish fan-out on the client metrics registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Bus) {
		if registry != nil {
			b.metrics = &busMetrics{core: registry.CoreMetrics()}
		}
	}
}
