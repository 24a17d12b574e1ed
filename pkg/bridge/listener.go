package bridge

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/goclaw/oembridge/pkg/executor"
	"github.com/goclaw/oembridge/pkg/notification"
)

// Listener is the vendor OEM extension callback.
//
// OnSessionStatus and OnDeviceStatus run on the executor given at
// registration. OnSessionConfig and OnRangingReport run on a dedicated
// goroutine and must answer within the response timeout; their context is
// canceled when the bridge stops waiting. Returning an error or panicking
// makes the bridge answer the adapter with the default value.
//
// Listeners are matched by identity on Unregister, so implement Listener on
// a pointer type.
type Listener interface {
	OnSessionStatus(ctx context.Context, status notification.Bundle)
	OnDeviceStatus(ctx context.Context, status notification.Bundle)
	OnSessionConfig(ctx context.Context, config notification.Bundle) (int32, error)
	OnRangingReport(ctx context.Context, report notification.Bundle) (notification.Bundle, error)
}

// Registration is the registered executor and listener pair.
type Registration struct {
	Executor executor.Executor
	Listener Listener
	Since    time.Time
}

// ListenerType returns the dynamic type name of the listener.
func (r Registration) ListenerType() string {
	if r.Listener == nil {
		return ""
	}
	return fmt.Sprintf("%T", r.Listener)
}

// sameListener compares listeners by pointer identity. Non-pointer listeners
// never match, even when their values are equal.
func sameListener(a, b Listener) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta.Kind() != reflect.Pointer {
		return false
	}
	return a == b
}
