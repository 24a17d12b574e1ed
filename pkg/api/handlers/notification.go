package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goclaw/oembridge/pkg/api/middleware"
	"github.com/goclaw/oembridge/pkg/api/response"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/notification"
)

const maxNotificationBody = 1 << 20

// Deliverer hands an envelope to the bridge and returns its reply.
type Deliverer interface {
	Deliver(ctx context.Context, env *notification.Envelope) (notification.Reply, bool, error)
}

// NotificationRequest is the POST /api/v1/notifications body.
type NotificationRequest struct {
	Kind    string              `json:"kind"`
	Payload notification.Bundle `json:"payload,omitempty"`
}

// NotificationResponse describes a delivered notification. Reply is set for
// request-response kinds that reached a subscriber.
type NotificationResponse struct {
	ID    string              `json:"id"`
	Kind  notification.Kind   `json:"kind"`
	Mode  notification.Mode   `json:"mode"`
	Reply *notification.Reply `json:"reply,omitempty"`
}

// NotificationHandler injects notifications through the local adapter.
type NotificationHandler struct {
	deliverer Deliverer
	log       logger.Logger
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(d Deliverer, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		deliverer: d,
		log:       logger.OrGlobal(log),
	}
}

// Inject handles POST /api/v1/notifications. Fire-and-forget kinds answer
// 202; request-response kinds answer 200 with the reply.
func (h *NotificationHandler) Inject(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req NotificationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNotificationBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest,
			"invalid request body: "+err.Error(), requestID)
		return
	}

	kind, err := notification.ParseKind(req.Kind)
	if err != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, response.ErrCodeValidationFailed,
			err.Error(), map[string]interface{}{"kinds": notification.Kinds()}, requestID)
		return
	}

	env := notification.NewEnvelope(kind, normalizeNumbers(req.Payload))
	reply, hasReply, err := h.deliverer.Deliver(r.Context(), env)
	if err != nil {
		h.log.ErrorContext(r.Context(), "notification delivery failed", "kind", kind, "id", env.ID, "error", err)
		response.HandleError(w, err, requestID)
		return
	}

	resp := NotificationResponse{ID: env.ID, Kind: kind, Mode: kind.Mode()}
	if !hasReply {
		response.JSON(w, http.StatusAccepted, resp)
		return
	}
	resp.Reply = &reply
	response.JSON(w, http.StatusOK, resp)
}

// normalizeNumbers turns json.Number values into int64 where they are
// integral and float64 otherwise, recursing into nested objects.
func normalizeNumbers(b notification.Bundle) notification.Bundle {
	if b == nil {
		return nil
	}
	out := make(notification.Bundle, len(b))
	for k, v := range b {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		return normalizeNumbers(val)
	case notification.Bundle:
		return normalizeNumbers(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = normalizeValue(val[i])
		}
		return out
	}
	return v
}
