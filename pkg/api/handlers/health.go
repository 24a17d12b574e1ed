// Package handlers provides the admin API request handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/goclaw/oembridge/pkg/api/response"
	"github.com/goclaw/oembridge/pkg/bridge"
	"github.com/goclaw/oembridge/pkg/version"
)

// AdapterHealth reports transport health.
type AdapterHealth interface {
	Healthy() bool
}

// BridgeStatus reports the bridge's registration state.
type BridgeStatus interface {
	Status() bridge.Status
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	adapter     AdapterHealth
	bridge      BridgeStatus
	adapterType string
	started     time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(adapter AdapterHealth, b BridgeStatus, adapterType string) *HealthHandler {
	return &HealthHandler{
		adapter:     adapter,
		bridge:      b,
		adapterType: adapterType,
		started:     time.Now(),
	}
}

// Health handles the /health endpoint (liveness probe). The process is live
// while its adapter is healthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.adapter.Healthy() {
		response.JSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
		return
	}
	response.JSON(w, http.StatusServiceUnavailable, map[string]string{
		"status": "unhealthy",
	})
}

// Ready handles the /ready endpoint (readiness probe). Ready means the
// adapter is healthy and a listener is registered.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready() {
		response.JSON(w, http.StatusOK, map[string]bool{
			"ready": true,
		})
		return
	}
	response.JSON(w, http.StatusServiceUnavailable, map[string]bool{
		"ready": false,
	})
}

// StatusResponse is the /status body.
type StatusResponse struct {
	Version        map[string]string `json:"version"`
	Uptime         string            `json:"uptime"`
	Adapter        string            `json:"adapter"`
	AdapterHealthy bool              `json:"adapter_healthy"`
	Ready          bool              `json:"ready"`
	Bridge         bridge.Status     `json:"bridge"`
}

// Status handles the /status endpoint (detailed status).
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.bridge.Status()
	healthy := h.adapter.Healthy()
	response.JSON(w, http.StatusOK, StatusResponse{
		Version:        version.Info(),
		Uptime:         time.Since(h.started).Round(time.Second).String(),
		Adapter:        h.adapterType,
		AdapterHealthy: healthy,
		Ready:          healthy && status.Registered,
		Bridge:         status,
	})
}

func (h *HealthHandler) ready() bool {
	return h.adapter.Healthy() && h.bridge.Status().Registered
}
