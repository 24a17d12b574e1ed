package handlers

import (
	"net/http"

	"github.com/goclaw/oembridge/pkg/api/middleware"
	"github.com/goclaw/oembridge/pkg/api/response"
	"github.com/goclaw/oembridge/pkg/listener"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/specinfo"
)

// HistorySource exposes what the built-in listener has seen.
type HistorySource interface {
	History() []listener.Record
}

// BridgeHandler serves read-only views of the bridge.
type BridgeHandler struct {
	bridge   BridgeStatus
	spec     specinfo.Info
	listener HistorySource
	log      logger.Logger
}

// NewBridgeHandler creates a bridge handler. history may be nil when the
// built-in listener is disabled.
func NewBridgeHandler(b BridgeStatus, spec specinfo.Info, history HistorySource, log logger.Logger) *BridgeHandler {
	return &BridgeHandler{
		bridge:   b,
		spec:     spec,
		listener: history,
		log:      logger.OrGlobal(log),
	}
}

// Registration handles GET /api/v1/registration.
func (h *BridgeHandler) Registration(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.bridge.Status())
}

// SpecInfo handles GET /api/v1/specinfo.
func (h *BridgeHandler) SpecInfo(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.spec.ToTransferable())
}

// HistoryResponse is the /api/v1/listener/history body.
type HistoryResponse struct {
	Records []listener.Record `json:"records"`
	Count   int               `json:"count"`
}

// History handles GET /api/v1/listener/history.
func (h *BridgeHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.listener == nil {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
			"built-in listener is disabled", middleware.GetRequestID(r.Context()))
		return
	}
	records := h.listener.History()
	response.JSON(w, http.StatusOK, HistoryResponse{Records: records, Count: len(records)})
}
