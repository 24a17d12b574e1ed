package bridge

import (
	"sync"
	"time"
)

// MetricsRecorder defines metrics hooks for bridge operations.
type MetricsRecorder interface {
	RecordDispatch(kind string, outcome string, duration time.Duration)
	RecordListenerFailure(kind string)
	RecordRegistration(op string, result string)
	SetRegistered(registered bool)
}

type nopMetrics struct{}

func (nopMetrics) RecordDispatch(kind string, outcome string, duration time.Duration) {}
func (nopMetrics) RecordListenerFailure(kind string)                                  {}
func (nopMetrics) RecordRegistration(op string, result string)                        {}
func (nopMetrics) SetRegistered(registered bool)                                      {}

var (
	metricsMu sync.RWMutex
	metrics   MetricsRecorder = nopMetrics{}
)

// SetMetricsRecorder sets the package-level bridge metrics recorder.
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
