package bridge

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/goclaw/oembridge/pkg/adapter"
	"github.com/goclaw/oembridge/pkg/executor"
	"github.com/goclaw/oembridge/pkg/identity"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/notification"
	"github.com/goclaw/oembridge/pkg/waiter"
)

// Dispatcher receives notifications from the adapter and forwards them to
// the registered listener. Nothing it does returns an error or panic to the
// adapter.
type Dispatcher struct {
	registry *Registry
	waiter   *waiter.Waiter
	scope    identity.Scope
	log      logger.Logger
	observer Observer
}

var _ adapter.Callback = (*Dispatcher)(nil)

// OnSessionStatus forwards a session status update on the listener's executor.
func (d *Dispatcher) OnSessionStatus(ctx context.Context, status notification.Bundle) {
	d.fireAndForget(ctx, notification.KindSessionStatus, status, func(ctx context.Context, l Listener, b notification.Bundle) {
		l.OnSessionStatus(ctx, b)
	})
}

// OnDeviceStatus forwards a device status update on the listener's executor.
func (d *Dispatcher) OnDeviceStatus(ctx context.Context, status notification.Bundle) {
	d.fireAndForget(ctx, notification.KindDeviceStatus, status, func(ctx context.Context, l Listener, b notification.Bundle) {
		l.OnDeviceStatus(ctx, b)
	})
}

// OnSessionConfig asks the listener to check a session configuration. It
// returns notification.StatusOK when there is no listener or no timely answer.
func (d *Dispatcher) OnSessionConfig(ctx context.Context, config notification.Bundle) int32 {
	return request(ctx, d, notification.KindSessionConfig, config, notification.StatusOK,
		func(ctx context.Context, l Listener, b notification.Bundle) (int32, error) {
			return l.OnSessionConfig(ctx, b)
		})
}

// OnRangingReport lets the listener rewrite a ranging report. It returns
// report unchanged when there is no listener or no timely answer.
func (d *Dispatcher) OnRangingReport(ctx context.Context, report notification.Bundle) notification.Bundle {
	return request(ctx, d, notification.KindRangingReport, report, report,
		func(ctx context.Context, l Listener, b notification.Bundle) (notification.Bundle, error) {
			return l.OnRangingReport(ctx, b)
		})
}

// Timeout returns the response timeout for request-response notifications.
func (d *Dispatcher) Timeout() time.Duration {
	return d.waiter.Timeout()
}

// SetTimeout changes the response timeout. Non-positive values are ignored.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	d.waiter.SetTimeout(timeout)
}

func (d *Dispatcher) fireAndForget(ctx context.Context, kind notification.Kind, payload notification.Bundle,
	call func(context.Context, Listener, notification.Bundle)) {
	start := time.Now()
	ctx, span := startDispatchSpan(ctx, kind)

	ctx, release := d.scope.Acquire(ctx)
	defer release()

	reg, ok := d.registry.Current()
	if !ok {
		d.log.DebugContext(ctx, "no listener registered, dropping notification", "kind", kind)
		d.finish(kind, OutcomeDropped, start)
		endSpan(span, OutcomeDropped, nil)
		return
	}

	data := payload.Clone()
	taskCtx := context.WithoutCancel(ctx)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				d.listenerFailed(taskCtx, kind, &waiter.PanicError{Value: r, Stack: debug.Stack()})
			}
		}()
		call(taskCtx, reg.Listener, data)
	}

	if err := submit(reg, task); err != nil {
		d.listenerFailed(ctx, kind, err)
		d.finish(kind, OutcomeFailed, start)
		endSpan(span, OutcomeFailed, err)
		return
	}
	d.finish(kind, OutcomeDelivered, start)
	endSpan(span, OutcomeDelivered, nil)
}

func request[R any](ctx context.Context, d *Dispatcher, kind notification.Kind, payload notification.Bundle, fallback R,
	call func(context.Context, Listener, notification.Bundle) (R, error)) R {
	start := time.Now()
	ctx, span := startDispatchSpan(ctx, kind)

	ctx, release := d.scope.Acquire(ctx)
	defer release()

	reg, ok := d.registry.Current()
	if !ok {
		d.log.DebugContext(ctx, "no listener registered, returning default", "kind", kind)
		d.finish(kind, OutcomeUnregistered, start)
		endSpan(span, OutcomeUnregistered, nil)
		return fallback
	}

	data := payload.Clone()
	res := waiter.Do(ctx, d.waiter, string(kind), func(ctx context.Context) (R, error) {
		return call(ctx, reg.Listener, data)
	}, fallback)

	outcome := dispatchOutcome(res.Outcome)
	var spanErr error
	if res.Outcome == waiter.OutcomeFailed {
		spanErr = &ListenerFailureError{Kind: kind, Err: res.Err}
		metricsRecorder().RecordListenerFailure(string(kind))
	}
	d.finish(kind, outcome, start)
	endSpan(span, outcome, spanErr)
	return res.Value
}

func submit(reg Registration, task func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor rejected task: %v", r)
		}
	}()
	if s, ok := reg.Executor.(executor.Submitter); ok {
		return s.Submit(task)
	}
	reg.Executor.Execute(task)
	return nil
}

func (d *Dispatcher) listenerFailed(ctx context.Context, kind notification.Kind, err error) {
	lf := &ListenerFailureError{Kind: kind, Err: err}
	args := []any{"kind", kind, "error", lf}
	if pe, ok := err.(*waiter.PanicError); ok {
		args = append(args, "stack", string(pe.Stack))
	}
	d.log.ErrorContext(ctx, "listener failed handling notification", args...)
	metricsRecorder().RecordListenerFailure(string(kind))
}

func (d *Dispatcher) finish(kind notification.Kind, outcome string, start time.Time) {
	elapsed := time.Since(start)
	metricsRecorder().RecordDispatch(string(kind), outcome, elapsed)
	d.observer.OnDispatch(DispatchEvent{
		Kind:     kind,
		Mode:     kind.Mode(),
		Outcome:  outcome,
		Duration: elapsed,
		At:       start,
	})
}

func dispatchOutcome(o waiter.Outcome) string {
	switch o {
	case waiter.OutcomeAnswered:
		return OutcomeAnswered
	case waiter.OutcomeTimedOut:
		return OutcomeTimedOut
	case waiter.OutcomeCanceled:
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}
