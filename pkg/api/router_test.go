package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/oembridge/config"
	"github.com/goclaw/oembridge/pkg/adapter"
	"github.com/goclaw/oembridge/pkg/api/handlers"
	"github.com/goclaw/oembridge/pkg/bridge"
	"github.com/goclaw/oembridge/pkg/executor"
	"github.com/goclaw/oembridge/pkg/listener"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/notification"
)

type testStack struct {
	local    *adapter.Local
	bridge   *bridge.Bridge
	listener *listener.Listener
	handlers *Handlers
}

// newTestStack wires a bridge over the local adapter with the built-in
// listener registered.
func newTestStack(t *testing.T, cfg *config.Config) *testStack {
	t.Helper()
	log := logger.Discard()

	local := adapter.NewLocal()
	b := bridge.New(local, bridge.WithLogger(log), bridge.WithResponseTimeout(time.Second))
	l := listener.New(listener.Config{SessionConfigStatus: 2}, log)
	require.NoError(t, b.Register(context.Background(), executor.Inline{}, l))
	t.Cleanup(func() { _ = local.Close() })

	ws := handlers.NewWebSocketHandler(log, handlers.WebSocketConfig{MaxConnections: 2})
	t.Cleanup(ws.Close)

	return &testStack{
		local:    local,
		bridge:   b,
		listener: l,
		handlers: &Handlers{
			Health:         handlers.NewHealthHandler(local, b, "local"),
			Bridge:         handlers.NewBridgeHandler(b, cfg.Device.SpecInfo, l, log),
			Notifications:  handlers.NewNotificationHandler(local, log),
			Events:         ws,
			MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics\n")) }),
		},
	}
}

func TestNewRouter(t *testing.T) {
	cfg := config.DefaultConfig()
	router := NewRouter(cfg, logger.Discard(), &Handlers{})
	require.NotNil(t, router)

	// No handlers means no routes.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRoutes_HealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "health check", path: "/health", wantStatus: http.StatusOK},
		{name: "ready check", path: "/ready", wantStatus: http.StatusOK},
		{name: "status check", path: "/status", wantStatus: http.StatusOK},
	}

	cfg := config.DefaultConfig()
	stack := newTestStack(t, cfg)
	router := NewRouter(cfg, logger.Discard(), stack.handlers)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestRegisterRoutes_ReadyAfterUnregister(t *testing.T) {
	cfg := config.DefaultConfig()
	stack := newTestStack(t, cfg)
	router := NewRouter(cfg, logger.Discard(), stack.handlers)

	require.NoError(t, stack.bridge.Unregister(context.Background(), stack.listener))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRegisterRoutes_BridgeEndpoints(t *testing.T) {
	cfg := config.DefaultConfig()
	stack := newTestStack(t, cfg)
	router := NewRouter(cfg, logger.Discard(), stack.handlers)

	t.Run("registration", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registration", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var status bridge.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.Registered)
		assert.Equal(t, "*listener.Listener", status.ListenerType)
	})

	t.Run("spec info", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/specinfo", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "fira_stack_info")
	})

	t.Run("notification round trip", func(t *testing.T) {
		body := `{"kind":"session_config","payload":{"session_id":7}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp handlers.NotificationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Reply)
		assert.Equal(t, int32(2), resp.Reply.Status)
	})

	t.Run("history", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/listener/history", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp handlers.HistoryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, notification.KindSessionConfig, resp.Records[0].Kind)
	})

	t.Run("metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, cfg.Metrics.Path, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "# metrics")
	})
}

func TestRegisterRoutes_NotificationsOnlyWithLocalAdapter(t *testing.T) {
	cfg := config.DefaultConfig()
	stack := newTestStack(t, cfg)
	stack.handlers.Notifications = nil
	router := NewRouter(cfg, logger.Discard(), stack.handlers)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRoutes_CustomMetricsPath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics.Path = "/internal/metrics"
	stack := newTestStack(t, cfg)
	router := NewRouter(cfg, logger.Discard(), stack.handlers)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
