package bridge

import (
	"time"

	"github.com/goclaw/oembridge/pkg/notification"
)

// Dispatch outcomes reported to observers and metrics.
const (
	OutcomeDelivered    = "delivered"
	OutcomeDropped      = "dropped"
	OutcomeUnregistered = "unregistered"
	OutcomeAnswered     = "answered"
	OutcomeFailed       = "failed"
	OutcomeTimedOut     = "timeout"
	OutcomeCanceled     = "canceled"
)

// DispatchEvent describes one handled notification.
type DispatchEvent struct {
	Kind     notification.Kind `json:"kind"`
	Mode     notification.Mode `json:"mode"`
	Outcome  string            `json:"outcome"`
	Duration time.Duration     `json:"duration"`
	At       time.Time         `json:"at"`
}

// RegistrationEvent describes a successful registration change.
type RegistrationEvent struct {
	Op           string    `json:"op"`
	Registered   bool      `json:"registered"`
	ListenerType string    `json:"listener_type,omitempty"`
	At           time.Time `json:"at"`
}

// Observer receives bridge events. Implementations must not block.
type Observer interface {
	OnDispatch(DispatchEvent)
	OnRegistrationChange(RegistrationEvent)
}

type nopObserver struct{}

func (nopObserver) OnDispatch(DispatchEvent)               {}
func (nopObserver) OnRegistrationChange(RegistrationEvent) {}
