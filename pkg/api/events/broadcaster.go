// Package events fans bridge events out to in-process subscribers such as
// the websocket event stream.
package events

import (
	"sync"
	"time"

	"github.com/goclaw/oembridge/pkg/bridge"
)

// Event types.
const (
	TypeDispatch     = "bridge.dispatch"
	TypeRegistration = "bridge.registration"
)

var _ bridge.Observer = (*Broadcaster)(nil)

// Event is the canonical event payload broadcast to websocket subscribers.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Broadcaster broadcasts events to in-process subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroadcaster creates a broadcaster instance.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe subscribes to events with a buffered channel.
func (b *Broadcaster) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Broadcast sends event to every subscriber. Subscribers whose buffer is
// full miss the event.
func (b *Broadcaster) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]chan Event, 0, len(b.subscribers))
	for ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// OnDispatch publishes a bridge dispatch event.
func (b *Broadcaster) OnDispatch(e bridge.DispatchEvent) {
	b.Broadcast(Event{
		Type:      TypeDispatch,
		Timestamp: e.At,
		Payload: map[string]any{
			"kind":        e.Kind,
			"mode":        e.Mode,
			"outcome":     e.Outcome,
			"duration_ms": float64(e.Duration) / float64(time.Millisecond),
		},
	})
}

// OnRegistrationChange publishes a bridge registration event.
func (b *Broadcaster) OnRegistrationChange(e bridge.RegistrationEvent) {
	payload := map[string]any{
		"op":         e.Op,
		"registered": e.Registered,
	}
	if e.ListenerType != "" {
		payload["listener_type"] = e.ListenerType
	}
	b.Broadcast(Event{
		Type:      TypeRegistration,
		Timestamp: e.At,
		Payload:   payload,
	})
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}
