package bridge

import (
	"errors"
	"fmt"

	"github.com/goclaw/oembridge/pkg/notification"
)

var (
	// ErrAlreadyRegistered is returned by Register while a listener is registered.
	ErrAlreadyRegistered = errors.New("listener already registered, unregister the existing listener first")

	// ErrNotRegistered is returned by Unregister when the given listener is not
	// the registered one.
	ErrNotRegistered = errors.New("listener not registered")
)

// TransportError is returned when the adapter fails to subscribe or
// unsubscribe the bridge.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("adapter %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ListenerFailureError describes an error or panic raised by a listener.
// It never reaches the adapter; it is logged and reported to observers.
type ListenerFailureError struct {
	Kind notification.Kind
	Err  error
}

func (e *ListenerFailureError) Error() string {
	return fmt.Sprintf("listener failed handling %s: %v", e.Kind, e.Err)
}

func (e *ListenerFailureError) Unwrap() error {
	return e.Err
}

// InvalidArgumentError is returned for unusable Register arguments.
type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Arg, e.Reason)
}

// IsTransportError returns true if err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsListenerFailure returns true if err is or wraps a ListenerFailureError.
func IsListenerFailure(err error) bool {
	var lf *ListenerFailureError
	return errors.As(err, &lf)
}

// IsInvalidArgument returns true if err is or wraps an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ia *InvalidArgumentError
	return errors.As(err, &ia)
}
