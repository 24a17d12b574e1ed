package waiter

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

// PanicError is reported when the work passed to a ScopedWorker panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("work panicked: %v", e.Value)
}

// Completion is the single result a ScopedWorker produces.
type Completion[R any] struct {
	Value R
	Err   error
}

// ScopedWorker runs exactly one piece of work on its own goroutine.
//
// The completion channel has capacity one, so the goroutine finishes even if
// the owner stopped listening. Abandon cancels the work's context; honoring
// it is up to the work.
type ScopedWorker[R any] struct {
	done      chan Completion[R]
	cancel    context.CancelFunc
	abandoned atomic.Bool
	finished  atomic.Bool
}

// StartWorker starts work on a fresh goroutine. The work's context is derived
// from ctx without its cancellation, so a transport cancelling ctx does not
// reach into the listener; only Abandon does.
func StartWorker[R any](ctx context.Context, work func(context.Context) (R, error)) *ScopedWorker[R] {
	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &ScopedWorker[R]{
		done:   make(chan Completion[R], 1),
		cancel: cancel,
	}

	go w.run(workCtx, work)
	return w
}

func (w *ScopedWorker[R]) run(ctx context.Context, work func(context.Context) (R, error)) {
	var c Completion[R]
	defer func() {
		if r := recover(); r != nil {
			c = Completion[R]{Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
		w.finished.Store(true)
		w.done <- c
		w.cancel()
	}()

	v, err := work(ctx)
	c = Completion[R]{Value: v, Err: err}
}

// Done returns the channel the completion is delivered on.
func (w *ScopedWorker[R]) Done() <-chan Completion[R] {
	return w.done
}

// Abandon gives up on the worker. Its eventual completion is discarded.
func (w *ScopedWorker[R]) Abandon() {
	w.abandoned.Store(true)
	w.cancel()
}

// Abandoned reports whether Abandon was called.
func (w *ScopedWorker[R]) Abandoned() bool {
	return w.abandoned.Load()
}

// Finished reports whether the work has returned.
func (w *ScopedWorker[R]) Finished() bool {
	return w.finished.Load()
}
