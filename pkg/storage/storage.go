// Package storage provides the notification journal: a durable record of
// the notifications the built-in listener received.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goclaw/oembridge/pkg/notification"
)

// Journal defines the interface for journal backends.
type Journal interface {
	// Append stores e and assigns e.Seq.
	Append(ctx context.Context, e *Entry) error
	// Get returns the entry with the given sequence number.
	Get(ctx context.Context, seq uint64) (*Entry, error)
	// List returns matching entries, newest first.
	List(ctx context.Context, filter *Filter) ([]*Entry, error)

	// Lifecycle
	Close() error
}

// Entry is one journaled notification.
type Entry struct {
	Seq        uint64              `json:"seq"`
	Kind       notification.Kind   `json:"kind"`
	Payload    notification.Bundle `json:"payload,omitempty"`
	Caller     string              `json:"caller,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Clone returns a copy of e that shares nothing mutable with it.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Payload = e.Payload.Clone()
	return &c
}

// Filter defines filtering options for listing entries.
type Filter struct {
	// Kinds keeps only the listed kinds. Empty keeps all.
	Kinds []notification.Kind `json:"kinds,omitempty"`
	// Since drops entries received before it.
	Since time.Time `json:"since,omitempty"`
	// Limit caps the number of entries returned. Zero means no cap.
	Limit int `json:"limit"`
}

// Match reports whether e passes the kind and time filters.
func (f *Filter) Match(e *Entry) bool {
	if f == nil {
		return true
	}
	if !f.Since.IsZero() && e.ReceivedAt.Before(f.Since) {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == e.Kind {
			return true
		}
	}
	return false
}

// Full reports whether n entries already satisfy the limit.
func (f *Filter) Full(n int) bool {
	return f != nil && f.Limit > 0 && n >= f.Limit
}

// ErrClosed is wrapped by errors from a closed journal.
var ErrClosed = errors.New("journal is closed")

// NotFoundError indicates that the requested entry was not found.
type NotFoundError struct {
	Seq uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("journal entry not found: %d", e.Seq)
}

// StorageUnavailableError indicates that the storage backend is unavailable.
type StorageUnavailableError struct {
	Cause error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Cause)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Cause
}

// SerializationError indicates a failure in data serialization/deserialization.
type SerializationError struct {
	Operation string
	Cause     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error during %s: %v", e.Operation, e.Cause)
}

func (e *SerializationError) Unwrap() error {
	return e.Cause
}
