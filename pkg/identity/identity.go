// Package identity models running listener code under the bridge's own
// identity rather than the identity of the transport caller that delivered
// the notification.
//
// Callers acquire a scope before invoking a listener and release it when the
// invocation (or its timeout) is over:
//
//	ctx, release := scope.Acquire(ctx)
//	defer release()
package identity

import (
	"context"
	"sync"
	"sync/atomic"
)

// Caller identifies who a piece of work runs on behalf of.
type Caller struct {
	// UID is the numeric identity, when the platform has one.
	UID int

	// Name is a human readable identity.
	Name string
}

// SystemIdentity is the identity listener code runs under inside a System scope.
var SystemIdentity = Caller{UID: 1000, Name: "system"}

type callerKey struct{}

// WithCaller returns a context carrying the caller identity.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller identity carried by ctx.
func CallerFrom(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// Scope switches identity for the duration of a listener call.
type Scope interface {
	// Acquire switches identity and returns the context to run under and a
	// release func restoring the previous identity. Release is safe to call
	// more than once.
	Acquire(ctx context.Context) (context.Context, func())
}

// Nop is a Scope that does nothing. It is the default on platforms without
// an identity model.
type Nop struct{}

// Acquire returns ctx unchanged.
func (Nop) Acquire(ctx context.Context) (context.Context, func()) {
	return ctx, func() {}
}

// System runs listener code under SystemIdentity and tracks the caller
// identities it displaced until they are restored.
type System struct {
	active   atomic.Int64
	acquired atomic.Int64

	mu        sync.Mutex
	displaced map[uint64]Caller
	nextToken uint64
}

// NewSystem creates a System scope.
func NewSystem() *System {
	return &System{displaced: make(map[uint64]Caller)}
}

// Acquire replaces the caller identity in ctx with SystemIdentity.
func (s *System) Acquire(ctx context.Context) (context.Context, func()) {
	caller, _ := CallerFrom(ctx)

	s.mu.Lock()
	s.nextToken++
	token := s.nextToken
	s.displaced[token] = caller
	s.mu.Unlock()

	s.active.Add(1)
	s.acquired.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.displaced, token)
			s.mu.Unlock()
			s.active.Add(-1)
		})
	}
	return WithCaller(ctx, SystemIdentity), release
}

// Active returns the number of scopes acquired and not yet released.
func (s *System) Active() int64 {
	return s.active.Load()
}

// Acquired returns the total number of scopes ever acquired.
func (s *System) Acquired() int64 {
	return s.acquired.Load()
}

// Displaced returns the caller identities currently displaced by open scopes.
func (s *System) Displaced() []Caller {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Caller, 0, len(s.displaced))
	for _, c := range s.displaced {
		out = append(out, c)
	}
	return out
}
