package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goclaw/oembridge/pkg/notification"
)

// recordingCallback answers every request with fixed values and records
// fire-and-forget deliveries.
type recordingCallback struct {
	mu       sync.Mutex
	statuses []notification.Bundle
	devices  []notification.Bundle
}

func (c *recordingCallback) OnSessionStatus(_ context.Context, b notification.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, b)
}

func (c *recordingCallback) OnDeviceStatus(_ context.Context, b notification.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = append(c.devices, b)
}

func (c *recordingCallback) OnSessionConfig(context.Context, notification.Bundle) int32 {
	return 3
}

func (c *recordingCallback) OnRangingReport(_ context.Context, b notification.Bundle) notification.Bundle {
	out := b.Clone()
	out["vendor"] = true
	return out
}

type testMetrics struct {
	mu        sync.Mutex
	delivered int
	failed    map[string]int
}

func (m *testMetrics) RecordDelivered(transport string, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
}

func (m *testMetrics) RecordDeliveryFailed(transport string, kind string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[reason]++
}

func TestLocal_SubscribeDeliver(t *testing.T) {
	a := NewLocal()
	defer a.Close()
	cb := &recordingCallback{}

	if err := a.Subscribe(context.Background(), cb); err != nil {
		t.Fatal(err)
	}

	reply, ok, err := a.Deliver(context.Background(), notification.NewEnvelope(notification.KindSessionConfig, nil))
	if err != nil || !ok {
		t.Fatalf("Deliver session config: ok=%v err=%v", ok, err)
	}
	if reply.Status != 3 {
		t.Errorf("status = %d, want 3", reply.Status)
	}

	reply, ok, err = a.Deliver(context.Background(), notification.NewEnvelope(notification.KindRangingReport, notification.Bundle{"distance_cm": 120}))
	if err != nil || !ok {
		t.Fatalf("Deliver ranging report: ok=%v err=%v", ok, err)
	}
	if reply.Payload["vendor"] != true || reply.Payload["distance_cm"] != 120 {
		t.Errorf("unexpected ranging reply %+v", reply.Payload)
	}

	_, ok, err = a.Deliver(context.Background(), notification.NewEnvelope(notification.KindDeviceStatus, notification.Bundle{"state": 1}))
	if err != nil || ok {
		t.Fatalf("fire-and-forget should have no reply: ok=%v err=%v", ok, err)
	}
	if len(cb.devices) != 1 {
		t.Errorf("expected one device status, got %d", len(cb.devices))
	}
}

func TestLocal_DuplicateSubscribe(t *testing.T) {
	a := NewLocal()
	defer a.Close()

	if err := a.Subscribe(context.Background(), &recordingCallback{}); err != nil {
		t.Fatal(err)
	}
	if err := a.Subscribe(context.Background(), &recordingCallback{}); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("expected ErrAlreadySubscribed, got %v", err)
	}
}

func TestLocal_UnsubscribeRequiresSameCallback(t *testing.T) {
	a := NewLocal()
	defer a.Close()
	cb := &recordingCallback{}

	if err := a.Subscribe(context.Background(), cb); err != nil {
		t.Fatal(err)
	}
	if err := a.Unsubscribe(context.Background(), &recordingCallback{}); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("expected ErrNotSubscribed, got %v", err)
	}
	if err := a.Unsubscribe(context.Background(), cb); err != nil {
		t.Fatal(err)
	}
	if a.Subscribed() {
		t.Error("expected no subscriber")
	}

	subs, unsubs := a.Counts()
	if subs != 1 || unsubs != 1 {
		t.Errorf("Counts() = %d, %d", subs, unsubs)
	}
}

func TestLocal_FailNext(t *testing.T) {
	a := NewLocal()
	defer a.Close()
	boom := errors.New("binder died")

	a.FailNext(boom)
	if err := a.Subscribe(context.Background(), &recordingCallback{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if a.Subscribed() {
		t.Fatal("failed subscribe must not install the callback")
	}
	if err := a.Subscribe(context.Background(), &recordingCallback{}); err != nil {
		t.Fatalf("failure should only apply once: %v", err)
	}
}

func TestLocal_DeliverWithoutSubscriberDrops(t *testing.T) {
	rec := &testMetrics{failed: make(map[string]int)}
	SetMetricsRecorder(rec)
	t.Cleanup(func() { SetMetricsRecorder(nil) })

	a := NewLocal()
	defer a.Close()

	for i := 0; i < 3; i++ {
		_, ok, err := a.Deliver(context.Background(), notification.NewEnvelope(notification.KindSessionStatus, nil))
		if err != nil || ok {
			t.Fatalf("expected silent drop, got ok=%v err=%v", ok, err)
		}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.failed["no_subscriber"] != 3 {
		t.Errorf("no_subscriber = %d, want 3", rec.failed["no_subscriber"])
	}
}

func TestLocal_Close(t *testing.T) {
	a := NewLocal()
	if err := a.Subscribe(context.Background(), &recordingCallback{}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if a.Healthy() {
		t.Error("closed adapter should be unhealthy")
	}
	if err := a.Subscribe(context.Background(), &recordingCallback{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, _, err := a.Deliver(context.Background(), notification.NewEnvelope(notification.KindDeviceStatus, nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on deliver, got %v", err)
	}
}

func TestLocal_DeliverInvalidEnvelope(t *testing.T) {
	a := NewLocal()
	defer a.Close()
	if _, _, err := a.Deliver(context.Background(), &notification.Envelope{ID: "x", Kind: "bogus"}); err == nil {
		t.Error("expected validation error")
	}
}
