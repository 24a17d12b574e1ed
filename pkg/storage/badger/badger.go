// Package badger provides a Badger-based notification journal.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/goclaw/oembridge/pkg/storage"
)

const (
	entryPrefix  = "entry:"
	seqKey       = "meta:seq"
	seqBandwidth = 64
)

// Config holds configuration for BadgerJournal.
type Config struct {
	Path             string
	SyncWrites       bool
	ValueLogFileSize int64
	// TTL expires entries after the given age. Zero keeps them forever.
	TTL time.Duration
	// InMemory runs Badger without touching disk. Path is ignored.
	InMemory bool
}

// BadgerJournal implements the Journal interface using Badger.
type BadgerJournal struct {
	db     *badger.DB
	seq    *badger.Sequence
	config *Config

	mu     sync.RWMutex
	closed bool
}

// NewBadgerJournal opens (or creates) a journal at config.Path.
func NewBadgerJournal(config *Config) (*BadgerJournal, error) {
	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(config.SyncWrites).WithLogger(nil)
	if config.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(config.ValueLogFileSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &storage.StorageUnavailableError{Cause: err}
	}

	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		db.Close()
		return nil, &storage.StorageUnavailableError{Cause: err}
	}

	return &BadgerJournal{
		db:     db,
		seq:    seq,
		config: config,
	}, nil
}

// entryKey orders entries by sequence number under lexicographic iteration.
func entryKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", entryPrefix, seq))
}

// Serialization helpers
func serialize(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &storage.SerializationError{
			Operation: "marshal",
			Cause:     err,
		}
	}
	return data, nil
}

func deserialize(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &storage.SerializationError{
			Operation: "unmarshal",
			Cause:     err,
		}
	}
	return nil
}

func (b *BadgerJournal) checkOpen() error {
	if b.closed {
		return &storage.StorageUnavailableError{Cause: storage.ErrClosed}
	}
	return nil
}

// Append saves an entry to Badger.
func (b *BadgerJournal) Append(ctx context.Context, e *storage.Entry) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return err
	}

	n, err := b.seq.Next()
	if err != nil {
		return &storage.StorageUnavailableError{Cause: err}
	}
	// Badger sequences start at zero.
	e.Seq = n + 1

	data, err := serialize(e)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(entryKey(e.Seq), data)
		if b.config.TTL > 0 {
			entry = entry.WithTTL(b.config.TTL)
		}
		return txn.SetEntry(entry)
	})
}

// Get retrieves an entry by sequence number.
func (b *BadgerJournal) Get(ctx context.Context, seq uint64) (*storage.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var e storage.Entry
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(seq))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &storage.NotFoundError{Seq: seq}
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return deserialize(val, &e)
		})
	})
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// List walks the journal newest first and applies the filter.
func (b *BadgerJournal) List(ctx context.Context, filter *storage.Filter) ([]*storage.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*storage.Entry

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the last key with the prefix.
		for it.Seek(append([]byte(entryPrefix), 0xFF)); it.Valid(); it.Next() {
			if filter.Full(len(entries)) {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var e storage.Entry
			err := it.Item().Value(func(val []byte) error {
				return deserialize(val, &e)
			})
			if err != nil {
				continue // Skip entries that no longer decode
			}

			// Entries are in arrival order, so nothing older can match.
			if filter != nil && !filter.Since.IsZero() && e.ReceivedAt.Before(filter.Since) {
				return nil
			}
			if filter.Match(&e) {
				entries = append(entries, &e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Close releases the sequence and closes the Badger database.
func (b *BadgerJournal) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.seq.Release(); err != nil {
		_ = b.db.Close()
		return err
	}

	// Run garbage collection before closing; a failed pass does not block close.
	if !b.config.InMemory {
		_ = b.db.RunValueLogGC(0.5)
	}

	return b.db.Close()
}
