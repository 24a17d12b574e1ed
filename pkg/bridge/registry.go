package bridge

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/goclaw/oembridge/pkg/adapter"
	"github.com/goclaw/oembridge/pkg/executor"
	"github.com/goclaw/oembridge/pkg/logger"
)

// Registry holds at most one registered listener and keeps the adapter
// subscription in step with it.
type Registry struct {
	adapter  adapter.Adapter
	callback adapter.Callback
	log      logger.Logger
	observer Observer

	mu  sync.Mutex
	reg *Registration
}

func newRegistry(a adapter.Adapter, log logger.Logger, observer Observer) *Registry {
	return &Registry{
		adapter:  a,
		log:      log,
		observer: observer,
	}
}

// Register installs listener with its executor and subscribes the bridge to
// the adapter. On ErrAlreadyRegistered or a TransportError nothing changes.
func (r *Registry) Register(ctx context.Context, exec executor.Executor, listener Listener) error {
	if err := validateRegistration(exec, listener); err != nil {
		return err
	}

	ctx, span := bridgeTracer().Start(ctx, spanRegister)
	defer span.End()

	r.mu.Lock()
	if r.reg != nil {
		r.mu.Unlock()
		r.log.ErrorContext(ctx, "listener already registered, unregister it first",
			"registered", r.regType(),
			"requested", Registration{Listener: listener}.ListenerType(),
		)
		metricsRecorder().RecordRegistration("register", "already_registered")
		return ErrAlreadyRegistered
	}

	if err := r.adapter.Subscribe(ctx, r.callback); err != nil {
		r.mu.Unlock()
		r.log.WarnContext(ctx, "failed to subscribe bridge to adapter", "error", err)
		metricsRecorder().RecordRegistration("register", "transport_error")
		span.RecordError(err)
		return &TransportError{Op: "subscribe", Err: err}
	}

	reg := &Registration{Executor: exec, Listener: listener, Since: time.Now()}
	r.reg = reg
	r.mu.Unlock()

	r.log.InfoContext(ctx, "listener registered", "listener", reg.ListenerType())
	m := metricsRecorder()
	m.RecordRegistration("register", "ok")
	m.SetRegistered(true)
	r.observer.OnRegistrationChange(RegistrationEvent{
		Op:           "register",
		Registered:   true,
		ListenerType: reg.ListenerType(),
		At:           reg.Since,
	})
	return nil
}

// Unregister removes listener if it is the registered one. When the adapter
// fails to unsubscribe, the registration is kept.
func (r *Registry) Unregister(ctx context.Context, listener Listener) error {
	ctx, span := bridgeTracer().Start(ctx, spanUnregister)
	defer span.End()

	r.mu.Lock()
	if r.reg == nil || !sameListener(r.reg.Listener, listener) {
		r.mu.Unlock()
		r.log.ErrorContext(ctx, "listener not registered",
			"requested", Registration{Listener: listener}.ListenerType(),
		)
		metricsRecorder().RecordRegistration("unregister", "not_registered")
		return ErrNotRegistered
	}

	if err := r.adapter.Unsubscribe(ctx, r.callback); err != nil {
		r.mu.Unlock()
		r.log.WarnContext(ctx, "failed to unsubscribe bridge from adapter", "error", err)
		metricsRecorder().RecordRegistration("unregister", "transport_error")
		span.RecordError(err)
		return &TransportError{Op: "unsubscribe", Err: err}
	}

	listenerType := r.reg.ListenerType()
	r.reg = nil
	r.mu.Unlock()

	r.log.InfoContext(ctx, "listener unregistered", "listener", listenerType)
	m := metricsRecorder()
	m.RecordRegistration("unregister", "ok")
	m.SetRegistered(false)
	r.observer.OnRegistrationChange(RegistrationEvent{
		Op:           "unregister",
		Registered:   false,
		ListenerType: listenerType,
		At:           time.Now(),
	})
	return nil
}

// Current returns a snapshot of the registration.
func (r *Registry) Current() (Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reg == nil {
		return Registration{}, false
	}
	return *r.reg, true
}

// Registered reports whether a listener is registered.
func (r *Registry) Registered() bool {
	_, ok := r.Current()
	return ok
}

func (r *Registry) regType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reg == nil {
		return ""
	}
	return r.reg.ListenerType()
}

func validateRegistration(exec executor.Executor, listener Listener) error {
	if exec == nil {
		return &InvalidArgumentError{Arg: "executor", Reason: "must not be nil"}
	}
	if listener == nil {
		return &InvalidArgumentError{Arg: "listener", Reason: "must not be nil"}
	}
	if t := reflect.TypeOf(listener); t.Kind() != reflect.Pointer {
		return &InvalidArgumentError{
			Arg:    "listener",
			Reason: "dynamic type " + t.String() + " is not a pointer",
		}
	}
	return nil
}
