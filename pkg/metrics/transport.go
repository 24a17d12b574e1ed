package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initTransportMetrics() {
	m.deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oembridge_transport_delivered_total",
			Help: "Total number of envelopes delivered to the bridge by transport",
		},
		[]string{"transport", "kind"},
	)

	m.deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oembridge_transport_failures_total",
			Help: "Total number of envelopes a transport could not deliver",
		},
		[]string{"transport", "kind", "reason"},
	)

	m.registry.MustRegister(m.deliveries)
	m.registry.MustRegister(m.deliveryFailures)
}

// RecordDelivered records an envelope handed to the bridge.
func (m *Manager) RecordDelivered(transport string, kind string) {
	if !m.enabled {
		return
	}
	m.deliveries.WithLabelValues(transport, kind).Inc()
}

// RecordDeliveryFailed records an envelope that was not delivered.
func (m *Manager) RecordDeliveryFailed(transport string, kind string, reason string) {
	if !m.enabled {
		return
	}
	m.deliveryFailures.WithLabelValues(transport, kind, reason).Inc()
}
