// Package waiter runs a function on an isolated worker and waits for its
// answer for a bounded time, falling back to a default value when the answer
// does not arrive in time or the function fails.
package waiter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goclaw/oembridge/pkg/logger"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the listener response threshold.
const DefaultTimeout = 2000 * time.Millisecond

// Outcome describes how an await was resolved.
type Outcome int

const (
	// OutcomeAnswered means the work returned a value in time.
	OutcomeAnswered Outcome = iota
	// OutcomeFailed means the work returned an error or panicked.
	OutcomeFailed
	// OutcomeTimedOut means the deadline passed first.
	OutcomeTimedOut
	// OutcomeCanceled means the caller's context ended first.
	OutcomeCanceled
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timeout"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Fallback reports whether the outcome returned the fallback value.
func (o Outcome) Fallback() bool {
	return o != OutcomeAnswered
}

// Result is the resolved value of an await and how it was obtained.
type Result[R any] struct {
	Value   R
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// Await runs work on a fresh ScopedWorker and waits up to timeout for it.
// Exactly one of the work's value or fallback is returned. Await never panics.
func Await[R any](ctx context.Context, work func(context.Context) (R, error), timeout time.Duration, fallback R) Result[R] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	if work == nil {
		return Result[R]{Value: fallback, Outcome: OutcomeFailed, Err: errors.New("nil work"), Elapsed: time.Since(start)}
	}

	w := StartWorker(ctx, work)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-w.Done():
		if c.Err != nil {
			return Result[R]{Value: fallback, Outcome: OutcomeFailed, Err: c.Err, Elapsed: time.Since(start)}
		}
		return Result[R]{Value: c.Value, Outcome: OutcomeAnswered, Elapsed: time.Since(start)}
	case <-timer.C:
		w.Abandon()
		return Result[R]{Value: fallback, Outcome: OutcomeTimedOut, Err: context.DeadlineExceeded, Elapsed: time.Since(start)}
	case <-ctx.Done():
		w.Abandon()
		return Result[R]{Value: fallback, Outcome: OutcomeCanceled, Err: ctx.Err(), Elapsed: time.Since(start)}
	}
}

// AwaitResult is Await for callers that only need the value. Failures and
// timeouts are logged through the global logger.
func AwaitResult[R any](ctx context.Context, work func(context.Context) (R, error), timeout time.Duration, fallback R) R {
	res := Await(ctx, work, timeout, fallback)
	logOutcome(ctx, logger.Global(), "await", res.Outcome, res.Err, timeout)
	return res.Value
}

// Waiter bundles the timeout and logging used for repeated awaits.
type Waiter struct {
	log logger.Logger

	mu      sync.RWMutex
	timeout time.Duration

	warnMu   sync.Mutex
	warnings map[string]*rate.Sometimes
	warnRate time.Duration
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(w *Waiter) {
		w.log = log
	}
}

// WithTimeout sets the default timeout.
func WithTimeout(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithWarnInterval limits timeout warnings to one per interval per call name.
// Zero logs every timeout.
func WithWarnInterval(d time.Duration) Option {
	return func(w *Waiter) {
		w.warnRate = d
	}
}

// New creates a Waiter.
func New(opts ...Option) *Waiter {
	w := &Waiter{
		timeout:  DefaultTimeout,
		warnings: make(map[string]*rate.Sometimes),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logger.OrGlobal(w.log)
	return w
}

// Timeout returns the current timeout.
func (w *Waiter) Timeout() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.timeout
}

// SetTimeout changes the timeout used by subsequent awaits. Non-positive
// values are ignored.
func (w *Waiter) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = d
}

// Do awaits work with the waiter's timeout and logs failures and timeouts
// under name.
func Do[R any](ctx context.Context, w *Waiter, name string, work func(context.Context) (R, error), fallback R) Result[R] {
	timeout := w.Timeout()
	res := Await(ctx, work, timeout, fallback)

	switch res.Outcome {
	case OutcomeTimedOut:
		w.warnThrottled(name, func() {
			logOutcome(ctx, w.log, name, res.Outcome, res.Err, timeout)
		})
	case OutcomeFailed, OutcomeCanceled:
		logOutcome(ctx, w.log, name, res.Outcome, res.Err, timeout)
	}
	return res
}

func (w *Waiter) warnThrottled(name string, fn func()) {
	if w.warnRate <= 0 {
		fn()
		return
	}
	w.warnMu.Lock()
	s, ok := w.warnings[name]
	if !ok {
		s = &rate.Sometimes{First: 1, Interval: w.warnRate}
		w.warnings[name] = s
	}
	w.warnMu.Unlock()
	s.Do(fn)
}

func logOutcome(ctx context.Context, log logger.Logger, name string, outcome Outcome, err error, timeout time.Duration) {
	switch outcome {
	case OutcomeFailed:
		args := []any{"call", name, "error", err}
		var pe *PanicError
		if errors.As(err, &pe) {
			args = append(args, "stack", string(pe.Stack))
		}
		log.ErrorContext(ctx, "listener call failed, returning fallback", args...)
	case OutcomeTimedOut:
		log.WarnContext(ctx, "listener did not answer in time, returning fallback",
			"call", name,
			"timeout_ms", timeout.Milliseconds(),
		)
	case OutcomeCanceled:
		log.WarnContext(ctx, "listener call canceled by caller, returning fallback",
			"call", name,
			"error", err,
		)
	}
}
