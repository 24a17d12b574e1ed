// Package bridge connects a vendor OEM extension listener to the UWB
// adapter. The Registry manages the single registration and the Dispatcher
// forwards adapter notifications to it with bounded waits.
package bridge

import (
	"time"

	"github.com/goclaw/oembridge/pkg/adapter"
	"github.com/goclaw/oembridge/pkg/identity"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/waiter"
)

// Bridge pairs a Registry with the Dispatcher it subscribes to the adapter.
type Bridge struct {
	*Registry
	*Dispatcher
}

type options struct {
	log          logger.Logger
	timeout      time.Duration
	warnInterval time.Duration
	scope        identity.Scope
	observer     Observer
}

// Option configures a Bridge.
type Option func(*options)

// WithLogger sets the bridge logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithResponseTimeout sets how long request-response notifications wait for
// the listener.
func WithResponseTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithWarnInterval throttles timeout warnings to one per interval per kind.
func WithWarnInterval(d time.Duration) Option {
	return func(o *options) { o.warnInterval = d }
}

// WithIdentityScope sets the identity scope listener code runs under.
func WithIdentityScope(scope identity.Scope) Option {
	return func(o *options) { o.scope = scope }
}

// WithObserver sets the observer of dispatch and registration events.
func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

// New creates a Bridge on top of a.
func New(a adapter.Adapter, opts ...Option) *Bridge {
	o := options{timeout: waiter.DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Global().With("component", "bridge")
	}
	if o.scope == nil {
		o.scope = identity.Nop{}
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	reg := newRegistry(a, o.log, o.observer)
	d := &Dispatcher{
		registry: reg,
		waiter: waiter.New(
			waiter.WithLogger(o.log),
			waiter.WithTimeout(o.timeout),
			waiter.WithWarnInterval(o.warnInterval),
		),
		scope:    o.scope,
		log:      o.log,
		observer: o.observer,
	}
	reg.callback = d
	return &Bridge{Registry: reg, Dispatcher: d}
}

// Status is a point-in-time view of the bridge.
type Status struct {
	Registered   bool          `json:"registered"`
	ListenerType string        `json:"listener_type,omitempty"`
	Since        *time.Time    `json:"since,omitempty"`
	Timeout      time.Duration `json:"timeout"`
}

// Status returns the current registration and timeout.
func (b *Bridge) Status() Status {
	s := Status{Timeout: b.Timeout()}
	if reg, ok := b.Current(); ok {
		since := reg.Since
		s.Registered = true
		s.ListenerType = reg.ListenerType()
		s.Since = &since
	}
	return s
}
