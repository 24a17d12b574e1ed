// Package memory provides an in-memory notification journal.
package memory

import (
	"context"
	"sync"

	"github.com/goclaw/oembridge/pkg/storage"
)

// DefaultMaxEntries bounds a journal created with a non-positive limit.
const DefaultMaxEntries = 1024

// MemoryJournal implements the Journal interface with a bounded slice. The
// oldest entries are dropped once MaxEntries is reached.
type MemoryJournal struct {
	mu         sync.RWMutex
	entries    []*storage.Entry
	maxEntries int
	nextSeq    uint64
	closed     bool
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal(maxEntries int) *MemoryJournal {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryJournal{
		entries:    make([]*storage.Entry, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// Append stores a copy of e.
func (m *MemoryJournal) Append(ctx context.Context, e *storage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &storage.StorageUnavailableError{Cause: storage.ErrClosed}
	}

	m.nextSeq++
	e.Seq = m.nextSeq

	if len(m.entries) >= m.maxEntries {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:len(m.entries)-1]
	}
	m.entries = append(m.entries, e.Clone())
	return nil
}

// Get retrieves an entry by sequence number.
func (m *MemoryJournal) Get(ctx context.Context, seq uint64) (*storage.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, &storage.StorageUnavailableError{Cause: storage.ErrClosed}
	}

	// Sequence numbers are dense and ascending.
	if len(m.entries) > 0 {
		first := m.entries[0].Seq
		if seq >= first && seq-first < uint64(len(m.entries)) {
			return m.entries[seq-first].Clone(), nil
		}
	}
	return nil, &storage.NotFoundError{Seq: seq}
}

// List returns matching entries, newest first.
func (m *MemoryJournal) List(ctx context.Context, filter *storage.Filter) ([]*storage.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, &storage.StorageUnavailableError{Cause: storage.ErrClosed}
	}

	var out []*storage.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if filter.Full(len(out)) {
			break
		}
		if e := m.entries[i]; filter.Match(e) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

// Len returns the number of entries held.
func (m *MemoryJournal) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close releases the entries.
func (m *MemoryJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}
