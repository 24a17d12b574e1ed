package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/goclaw/oembridge/pkg/notification"
)

const transportLocal = "local"

// Local is an in-process adapter. Notifications are injected with Deliver,
// which plays the role of a transport delivery goroutine.
type Local struct {
	mu       sync.RWMutex
	callback Callback
	closed   bool
	failNext error

	subscribes   int
	unsubscribes int
}

// NewLocal creates an in-process adapter.
func NewLocal() *Local {
	return &Local{}
}

// Subscribe installs cb as the delivery target.
func (a *Local) Subscribe(_ context.Context, cb Callback) error {
	if cb == nil {
		return fmt.Errorf("callback cannot be nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.takeFailure(); err != nil {
		return err
	}
	if a.closed {
		return ErrClosed
	}
	if a.callback != nil {
		return ErrAlreadySubscribed
	}

	a.callback = cb
	a.subscribes++
	return nil
}

// Unsubscribe removes cb as the delivery target.
func (a *Local) Unsubscribe(_ context.Context, cb Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.takeFailure(); err != nil {
		return err
	}
	if a.callback == nil || a.callback != cb {
		return ErrNotSubscribed
	}

	a.callback = nil
	a.unsubscribes++
	return nil
}

// FailNext makes the next Subscribe or Unsubscribe return err.
func (a *Local) FailNext(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = err
}

func (a *Local) takeFailure() error {
	err := a.failNext
	a.failNext = nil
	return err
}

// Deliver hands env to the subscribed callback on the calling goroutine.
// The bool result is false when nothing was delivered or the kind has no
// reply. Notifications without a subscriber are dropped silently.
func (a *Local) Deliver(ctx context.Context, env *notification.Envelope) (notification.Reply, bool, error) {
	if err := env.Validate(); err != nil {
		metricsRecorder().RecordDeliveryFailed(transportLocal, "unknown", "invalid_envelope")
		return notification.Reply{}, false, err
	}

	a.mu.RLock()
	closed := a.closed
	cb := a.callback
	a.mu.RUnlock()

	if closed {
		metricsRecorder().RecordDeliveryFailed(transportLocal, string(env.Kind), "adapter_closed")
		return notification.Reply{}, false, ErrClosed
	}
	if cb == nil {
		metricsRecorder().RecordDeliveryFailed(transportLocal, string(env.Kind), "no_subscriber")
		return notification.Reply{}, false, nil
	}

	reply, hasReply := Dispatch(ctx, cb, env)
	metricsRecorder().RecordDelivered(transportLocal, string(env.Kind))
	return reply, hasReply, nil
}

// Subscribed reports whether a callback is installed.
func (a *Local) Subscribed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.callback != nil
}

// Counts returns how many successful subscribe and unsubscribe calls were made.
func (a *Local) Counts() (subscribes, unsubscribes int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.subscribes, a.unsubscribes
}

// Healthy returns true until Close is called.
func (a *Local) Healthy() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return !a.closed
}

// Close drops the subscriber and rejects further deliveries.
func (a *Local) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.callback = nil
	return nil
}
