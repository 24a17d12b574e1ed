package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initBridgeMetrics(cfg Config) {
	m.dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oembridge_dispatch_total",
			Help: "Total number of notifications handled by the bridge",
		},
		[]string{"kind", "outcome"},
	)

	m.dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oembridge_dispatch_duration_seconds",
			Help:    "Time the bridge spent handling a notification in seconds",
			Buckets: cfg.DispatchDurationBuckets,
		},
		[]string{"kind", "outcome"},
	)

	m.registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oembridge_registration_total",
			Help: "Total number of register and unregister attempts by result",
		},
		[]string{"op", "result"},
	)

	m.registered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oembridge_registered",
			Help: "1 when a listener is registered, 0 otherwise",
		},
	)

	m.listenerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oembridge_listener_failures_total",
			Help: "Total number of listener errors and panics",
		},
		[]string{"kind"},
	)

	m.registry.MustRegister(m.dispatchTotal)
	m.registry.MustRegister(m.dispatchDuration)
	m.registry.MustRegister(m.registrations)
	m.registry.MustRegister(m.registered)
	m.registry.MustRegister(m.listenerFailures)
}

// RecordDispatch records a handled notification.
func (m *Manager) RecordDispatch(kind string, outcome string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.dispatchTotal.WithLabelValues(kind, outcome).Inc()
	m.dispatchDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
}

// RecordListenerFailure records a listener error or panic.
func (m *Manager) RecordListenerFailure(kind string) {
	if !m.enabled {
		return
	}
	m.listenerFailures.WithLabelValues(kind).Inc()
}

// RecordRegistration records a register or unregister attempt.
func (m *Manager) RecordRegistration(op string, result string) {
	if !m.enabled {
		return
	}
	m.registrations.WithLabelValues(op, result).Inc()
}

// SetRegistered sets the registration gauge.
func (m *Manager) SetRegistered(registered bool) {
	if !m.enabled {
		return
	}
	if registered {
		m.registered.Set(1)
		return
	}
	m.registered.Set(0)
}
