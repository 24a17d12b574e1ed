package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goclaw/oembridge/pkg/api/events"
	"github.com/goclaw/oembridge/pkg/bridge"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/notification"
)

func testWSLogger() logger.Logger {
	return logger.Discard()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestWebSocketHandler_RejectsNonUpgrade(t *testing.T) {
	handler := NewWebSocketHandler(testWSLogger(), WebSocketConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebSocketHandler_SubscribeAndBroadcast(t *testing.T) {
	handler := NewWebSocketHandler(testWSLogger(), WebSocketConfig{
		MaxConnections: 5,
	})

	server := httptest.NewServer(handler)
	defer server.Close()
	defer handler.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{
		"type": "subscribe",
		"kind": "ranging_report",
	}); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	waitFor(t, func() bool { return handler.Connections() == 1 })

	if err := handler.Broadcast(EventMessage{
		Type: events.TypeDispatch,
		Payload: map[string]any{
			"kind":    notification.KindRangingReport,
			"outcome": bridge.OutcomeAnswered,
		},
	}); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got EventMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read broadcast event: %v", err)
	}
	if got.Type != events.TypeDispatch {
		t.Fatalf("type = %q, want %s", got.Type, events.TypeDispatch)
	}
	payload, ok := got.Payload.(map[string]any)
	if !ok || payload["kind"] != "ranging_report" {
		t.Fatalf("unexpected payload %v", got.Payload)
	}
}

func TestWebSocketHandler_ConnectionLimit(t *testing.T) {
	handler := NewWebSocketHandler(testWSLogger(), WebSocketConfig{
		MaxConnections: 1,
	})

	server := httptest.NewServer(handler)
	defer server.Close()
	defer handler.Close()

	first, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	if err != nil {
		t.Fatalf("failed to open first websocket: %v", err)
	}
	defer first.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	if err == nil {
		t.Fatal("expected second websocket dial to fail")
	}
	var handshakeErr websocket.HandshakeError
	if !errors.As(err, &handshakeErr) {
		t.Logf("dial returned non-handshake error type: %T", err)
	}
	if resp == nil {
		t.Fatal("expected HTTP response for failed upgrade")
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestWebSocketHandler_OriginCheck(t *testing.T) {
	handler := NewWebSocketHandler(testWSLogger(), WebSocketConfig{
		AllowedOrigins: []string{"http://allowed.example"},
	})
	server := httptest.NewServer(handler)
	defer server.Close()
	defer handler.Close()

	dialer := websocket.Dialer{}
	headers := http.Header{}
	headers.Set("Origin", "http://blocked.example")

	_, resp, err := dialer.Dial(wsURL(server.URL), headers)
	if err == nil {
		t.Fatal("expected websocket dial with blocked origin to fail")
	}
	if resp == nil {
		t.Fatal("expected HTTP response for blocked origin")
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestConnectionManager_RegisterUnregisterBroadcast(t *testing.T) {
	manager := NewConnectionManager(2)
	clientA := newWSClient(nil)
	clientB := newWSClient(nil)

	clientA.subscribe(string(notification.KindSessionConfig))

	if err := manager.Register(clientA); err != nil {
		t.Fatalf("register clientA failed: %v", err)
	}
	if err := manager.Register(clientB); err != nil {
		t.Fatalf("register clientB failed: %v", err)
	}
	if manager.Count() != 2 {
		t.Fatalf("count = %d, want 2", manager.Count())
	}

	sessionConfig := EventMessage{
		Type:    events.TypeDispatch,
		Payload: map[string]any{"kind": notification.KindSessionConfig},
	}
	if err := manager.Broadcast(sessionConfig); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	select {
	case <-clientA.send:
	case <-time.After(time.Second):
		t.Fatal("expected subscribed clientA to receive session_config event")
	}
	select {
	case <-clientB.send:
	case <-time.After(time.Second):
		t.Fatal("expected global clientB to receive session_config event")
	}

	deviceStatus := EventMessage{
		Type:    events.TypeDispatch,
		Payload: map[string]any{"kind": notification.KindDeviceStatus},
	}
	if err := manager.Broadcast(deviceStatus); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	select {
	case <-clientA.send:
		t.Fatal("did not expect clientA subscription to receive device_status event")
	case <-time.After(200 * time.Millisecond):
	}
	select {
	case <-clientB.send:
	case <-time.After(time.Second):
		t.Fatal("expected global clientB to receive device_status event")
	}

	registration := EventMessage{
		Type:    events.TypeRegistration,
		Payload: map[string]any{"op": "register", "registered": true},
	}
	if err := manager.Broadcast(registration); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}
	select {
	case <-clientA.send:
	case <-time.After(time.Second):
		t.Fatal("registration events should reach filtered clients")
	}

	manager.Unregister(clientA)
	if manager.Count() != 1 {
		t.Fatalf("count after unregister = %d, want 1", manager.Count())
	}
}

func TestWebSocketHandler_IgnoresUnknownKind(t *testing.T) {
	handler := NewWebSocketHandler(testWSLogger(), WebSocketConfig{})
	client := newWSClient(nil)

	handler.handleIncomingMessage(client, []byte(`{"type":"subscribe","kind":"gesture"}`))
	handler.handleIncomingMessage(client, []byte(`not json`))

	if len(client.subscriptions) != 0 {
		t.Fatalf("subscriptions = %v, want none", client.subscriptions)
	}

	handler.handleIncomingMessage(client, []byte(`{"type":"subscribe","payload":{"kind":"device_status"}}`))
	if !client.shouldReceive("device_status") || client.shouldReceive("session_status") {
		t.Fatal("payload kind subscription not applied")
	}
}

func TestWebSocketHandler_StreamFromBroadcaster(t *testing.T) {
	handler := NewWebSocketHandler(testWSLogger(), WebSocketConfig{})
	server := httptest.NewServer(handler)
	defer server.Close()
	defer handler.Close()

	b := events.NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	streamDone := make(chan struct{})
	go func() {
		handler.Stream(ctx, b)
		close(streamDone)
	}()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server.URL), nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return handler.Connections() == 1 && b.Subscribers() == 1 })

	b.OnRegistrationChange(bridge.RegistrationEvent{Op: "register", Registered: true, At: time.Now().UTC()})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got EventMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read streamed event: %v", err)
	}
	if got.Type != events.TypeRegistration {
		t.Fatalf("type = %q, want %s", got.Type, events.TypeRegistration)
	}

	cancel()
	select {
	case <-streamDone:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop on cancel")
	}
	if b.Subscribers() != 0 {
		t.Fatalf("stream should unsubscribe, subscribers = %d", b.Subscribers())
	}
}

func TestEventMessageJSONFormat(t *testing.T) {
	event := EventMessage{
		Type:      events.TypeDispatch,
		Timestamp: time.Now().UTC(),
		Payload: map[string]any{
			"kind": "session_status",
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["type"]; !ok {
		t.Fatal("missing type field")
	}
	if _, ok := decoded["timestamp"]; !ok {
		t.Fatal("missing timestamp field")
	}
	if _, ok := decoded["payload"]; !ok {
		t.Fatal("missing payload field")
	}
}
