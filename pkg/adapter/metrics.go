package adapter

import "sync"

// MetricsRecorder defines metrics hooks for transport deliveries.
type MetricsRecorder interface {
	RecordDelivered(transport string, kind string)
	RecordDeliveryFailed(transport string, kind string, reason string)
}

type nopMetrics struct{}

func (nopMetrics) RecordDelivered(transport string, kind string)                     {}
func (nopMetrics) RecordDeliveryFailed(transport string, kind string, reason string) {}

var (
	metricsMu sync.RWMutex
	metrics   MetricsRecorder = nopMetrics{}
)

// SetMetricsRecorder sets the package-level adapter metrics recorder.
func SetMetricsRecorder(recorder MetricsRecorder) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if recorder == nil {
		metrics = nopMetrics{}
		return
	}
	metrics = recorder
}

func metricsRecorder() MetricsRecorder {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}
