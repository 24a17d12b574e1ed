// Package adapter connects the bridge to the transport that delivers OEM
// extension notifications.
//
// An Adapter delivers notifications to at most one subscribed Callback. Each
// notification may arrive on its own goroutine; a Callback must be safe for
// concurrent use.
package adapter

import (
	"context"
	"errors"

	"github.com/goclaw/oembridge/pkg/notification"
)

// Callback is the set of entry points an adapter invokes.
type Callback interface {
	// OnSessionStatus delivers a session status notification.
	OnSessionStatus(ctx context.Context, status notification.Bundle)

	// OnDeviceStatus delivers a device status notification.
	OnDeviceStatus(ctx context.Context, status notification.Bundle)

	// OnSessionConfig asks for a session configuration status code.
	OnSessionConfig(ctx context.Context, config notification.Bundle) int32

	// OnRangingReport asks for the (possibly rewritten) ranging report.
	OnRangingReport(ctx context.Context, report notification.Bundle) notification.Bundle
}

// Adapter is the transport-side collaborator of the bridge.
type Adapter interface {
	// Subscribe starts delivering notifications to cb.
	Subscribe(ctx context.Context, cb Callback) error

	// Unsubscribe stops delivering notifications to cb.
	Unsubscribe(ctx context.Context, cb Callback) error

	// Healthy reports whether the transport is operational.
	Healthy() bool

	// Close shuts the adapter down.
	Close() error
}

var (
	// ErrClosed is returned by operations on a closed adapter.
	ErrClosed = errors.New("adapter is closed")

	// ErrAlreadySubscribed is returned when a callback is already subscribed.
	ErrAlreadySubscribed = errors.New("a callback is already subscribed")

	// ErrNotSubscribed is returned when unsubscribing an unknown callback.
	ErrNotSubscribed = errors.New("callback is not subscribed")
)

// Dispatch routes an envelope to the matching callback entry point and builds
// the reply. The returned bool is false for fire-and-forget kinds.
func Dispatch(ctx context.Context, cb Callback, env *notification.Envelope) (notification.Reply, bool) {
	reply := notification.Reply{ID: env.ID, Kind: env.Kind}
	switch env.Kind {
	case notification.KindSessionStatus:
		cb.OnSessionStatus(ctx, env.Payload)
		return reply, false
	case notification.KindDeviceStatus:
		cb.OnDeviceStatus(ctx, env.Payload)
		return reply, false
	case notification.KindSessionConfig:
		reply.Status = cb.OnSessionConfig(ctx, env.Payload)
		return reply, true
	case notification.KindRangingReport:
		reply.Payload = cb.OnRangingReport(ctx, env.Payload)
		return reply, true
	default:
		return reply, false
	}
}
