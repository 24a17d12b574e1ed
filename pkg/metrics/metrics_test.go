package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goclaw/oembridge/pkg/adapter"
	"github.com/goclaw/oembridge/pkg/bridge"
)

var (
	_ bridge.MetricsRecorder  = (*Manager)(nil)
	_ adapter.MetricsRecorder = (*Manager)(nil)
)

func TestNewManager(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	m := NewManager(cfg)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}

	if !m.Enabled() {
		t.Error("Expected metrics to be enabled")
	}
}

func TestNewManager_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	m := NewManager(cfg)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}

	if m.Enabled() {
		t.Error("Expected metrics to be disabled")
	}
}

func scrape(t *testing.T, m *Manager) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	return w.Body.String()
}

func TestMetricsHandler_BridgeMetrics(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordDispatch("ranging_report", "answered", 3*time.Millisecond)
	m.RecordDispatch("session_config", "timeout", 2*time.Second)
	m.RecordListenerFailure("session_config")
	m.RecordRegistration("register", "ok")
	m.SetRegistered(true)

	body := scrape(t, m)
	expected := []string{
		`oembridge_dispatch_total{kind="ranging_report",outcome="answered"} 1`,
		`oembridge_dispatch_total{kind="session_config",outcome="timeout"} 1`,
		"oembridge_dispatch_duration_seconds",
		`oembridge_listener_failures_total{kind="session_config"} 1`,
		`oembridge_registration_total{op="register",result="ok"} 1`,
		"oembridge_registered 1",
	}
	for _, metric := range expected {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}

	m.SetRegistered(false)
	if !strings.Contains(scrape(t, m), "oembridge_registered 0") {
		t.Error("Expected registered gauge to drop to 0")
	}
}

func TestMetricsHandler_TransportMetrics(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordDelivered("redis", "device_status")
	m.RecordDeliveryFailed("local", "session_status", "no_subscriber")

	body := scrape(t, m)
	expected := []string{
		`oembridge_transport_delivered_total{kind="device_status",transport="redis"} 1`,
		`oembridge_transport_failures_total{kind="session_status",reason="no_subscriber",transport="local"} 1`,
	}
	for _, metric := range expected {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsHandler_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	m := NewManager(cfg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when disabled, got %d", w.Code)
	}
}

func TestStartServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Port = 19091 // Use different port for testing

	m := NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		err := m.StartServer(ctx, cfg.Port, cfg.Path)
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:19091/metrics")
	if err != nil {
		t.Fatalf("Failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-errCh:
		t.Errorf("Server error: %v", err)
	case <-time.After(1 * time.Second):
	}
}

func TestNoOpManager(t *testing.T) {
	m := NoOpManager()

	if m.Enabled() {
		t.Error("NoOpManager should not be enabled")
	}

	// These should not panic
	m.RecordDispatch("session_status", "delivered", time.Millisecond)
	m.RecordListenerFailure("session_status")
	m.RecordRegistration("unregister", "ok")
	m.SetRegistered(true)
	m.RecordDelivered("local", "session_status")
	m.RecordDeliveryFailed("local", "session_status", "adapter_closed")
	m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond)
	m.RecordHTTPRequestWithContext(context.Background(), "GET", "/health", "200", time.Millisecond)
	m.IncActiveConnections()
	m.DecActiveConnections()
}

func BenchmarkRecordDispatch(b *testing.B) {
	m := NewManager(DefaultConfig())
	d := 100 * time.Microsecond
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordDispatch("ranging_report", "answered", d)
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	m := NewManager(DefaultConfig())
	d := 5 * time.Millisecond
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordHTTPRequest("GET", "/api/v1/registration", "200", d)
	}
}

func BenchmarkNoOpRecording(b *testing.B) {
	m := NoOpManager()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordDispatch("ranging_report", "answered", time.Millisecond)
		m.RecordRegistration("register", "ok")
	}
}

func TestMetricsMemoryUsage(t *testing.T) {
	m := NewManager(DefaultConfig())

	// Simulate heavy metrics recording with bounded label values
	kinds := []string{"session_status", "device_status", "session_config", "ranging_report"}
	outcomes := []string{"delivered", "answered", "timeout", "failed"}
	methods := []string{"GET", "POST"}
	paths := []string{"/api/v1/registration", "/api/v1/notifications", "/health", "/ready"}

	for i := 0; i < 100000; i++ {
		m.RecordDispatch(kinds[i%len(kinds)], outcomes[i%len(outcomes)], time.Duration(i)*time.Microsecond)
		m.RecordHTTPRequest(methods[i%len(methods)], paths[i%len(paths)], "200", time.Duration(i)*time.Microsecond)
	}

	body := scrape(t, m)
	if len(body) > 10*1024*1024 { // 10MB sanity check
		t.Errorf("Metrics output too large: %d bytes", len(body))
	}
}
