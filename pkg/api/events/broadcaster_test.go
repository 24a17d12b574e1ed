package events

import (
	"testing"
	"time"

	"github.com/goclaw/oembridge/pkg/bridge"
	"github.com/goclaw/oembridge/pkg/notification"
)

func TestBroadcaster_SubscribeBroadcastUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(1)

	b.Broadcast(Event{
		Type: TypeDispatch,
		Payload: map[string]any{
			"kind": "session_status",
		},
	})

	select {
	case event := <-ch:
		if event.Type != TypeDispatch {
			t.Fatalf("type = %q, want %s", event.Type, TypeDispatch)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("timestamp should be filled in")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast event")
	}

	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	if b.Subscribers() != 0 {
		t.Fatalf("subscribers = %d, want 0", b.Subscribers())
	}
}

func TestBroadcaster_ObserverEvents(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(2)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	b.OnRegistrationChange(bridge.RegistrationEvent{Op: "register", Registered: true, ListenerType: "*vendor.Listener", At: at})
	b.OnDispatch(bridge.DispatchEvent{
		Kind:     notification.KindRangingReport,
		Mode:     notification.ModeRequestResponse,
		Outcome:  bridge.OutcomeAnswered,
		Duration: 1500 * time.Microsecond,
		At:       at,
	})

	reg := <-ch
	if reg.Type != TypeRegistration || !reg.Timestamp.Equal(at) {
		t.Fatalf("unexpected registration event %+v", reg)
	}
	payload := reg.Payload.(map[string]any)
	if payload["listener_type"] != "*vendor.Listener" || payload["registered"] != true {
		t.Fatalf("unexpected registration payload %v", payload)
	}

	dispatch := <-ch
	if dispatch.Type != TypeDispatch {
		t.Fatalf("unexpected dispatch event %+v", dispatch)
	}
	payload = dispatch.Payload.(map[string]any)
	if payload["outcome"] != bridge.OutcomeAnswered {
		t.Fatalf("outcome = %v", payload["outcome"])
	}
	if payload["duration_ms"] != 1.5 {
		t.Fatalf("duration_ms = %v, want 1.5", payload["duration_ms"])
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	slow := b.Subscribe(1)
	fast := b.Subscribe(4)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			b.OnDispatch(bridge.DispatchEvent{Kind: notification.KindDeviceStatus, Outcome: bridge.OutcomeDropped})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
	if len(slow) != 1 {
		t.Errorf("slow subscriber buffered %d events, want 1", len(slow))
	}
	if len(fast) != 3 {
		t.Errorf("fast subscriber buffered %d events, want 3", len(fast))
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(1)
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	b.Broadcast(Event{Type: TypeDispatch})
}
