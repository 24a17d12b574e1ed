package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of a notification delivered by a transport.
type Envelope struct {
	// ID uniquely identifies the notification.
	ID string `json:"id"`

	// Kind is the notification kind.
	Kind Kind `json:"kind"`

	// Payload is the opaque notification payload.
	Payload Bundle `json:"payload,omitempty"`

	// ReplyTo is the transport address the answer is published to.
	// Only set for request-response kinds.
	ReplyTo string `json:"reply_to,omitempty"`

	// SentAt is the time the notification was produced.
	SentAt time.Time `json:"sent_at"`
}

// Reply carries the answer to a request-response notification.
type Reply struct {
	// ID is the ID of the envelope being answered.
	ID string `json:"id"`

	// Kind is the kind of the envelope being answered.
	Kind Kind `json:"kind"`

	// Status is the session configuration status code.
	Status int32 `json:"status"`

	// Payload is the (possibly rewritten) ranging report.
	Payload Bundle `json:"payload,omitempty"`
}

// NewEnvelope creates an envelope with a fresh ID.
func NewEnvelope(kind Kind, payload Bundle) *Envelope {
	return &Envelope{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}
}

// Validate checks the envelope is dispatchable.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("envelope cannot be nil")
	}
	if e.ID == "" {
		return fmt.Errorf("envelope id cannot be empty")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown notification kind %q", e.Kind)
	}
	return nil
}

// Encode marshals the envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope unmarshals and validates an envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeReply unmarshals a reply.
func DecodeReply(data []byte) (*Reply, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	return &r, nil
}
