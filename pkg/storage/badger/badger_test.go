package badger

import (
	"context"
	"testing"
	"time"

	"github.com/goclaw/oembridge/pkg/notification"
	"github.com/goclaw/oembridge/pkg/storage"
)

func newTestJournal(t *testing.T, path string) *BadgerJournal {
	t.Helper()
	j, err := NewBadgerJournal(&Config{
		Path:             path,
		SyncWrites:       false,
		ValueLogFileSize: 1 << 20,
	})
	if err != nil {
		t.Fatalf("Failed to create BadgerJournal: %v", err)
	}
	return j
}

// TestBadgerJournalSuite runs the full journal test suite against BadgerJournal.
func TestBadgerJournalSuite(t *testing.T) {
	suite := &storage.JournalTestSuite{
		NewJournal: func(t *testing.T) storage.Journal {
			return newTestJournal(t, t.TempDir())
		},
	}
	suite.RunAllTests(t)
}

func TestBadgerJournal_InMemory(t *testing.T) {
	j, err := NewBadgerJournal(&Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create in-memory BadgerJournal: %v", err)
	}
	defer j.Close()

	e := &storage.Entry{Kind: notification.KindDeviceStatus, ReceivedAt: time.Now().UTC()}
	if err := j.Append(context.Background(), e); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := j.Get(context.Background(), e.Seq); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
}

// TestBadgerJournal_Persistence verifies that entries and sequence numbers
// survive reopening the database.
func TestBadgerJournal_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	j := newTestJournal(t, dir)
	first := &storage.Entry{
		Kind:       notification.KindSessionConfig,
		Payload:    notification.Bundle{"session_id": "s-7"},
		ReceivedAt: time.Now().UTC(),
	}
	if err := j.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	j = newTestJournal(t, dir)
	defer j.Close()

	got, err := j.Get(ctx, first.Seq)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if id, _ := got.Payload.String("session_id"); id != "s-7" {
		t.Errorf("expected session_id s-7, got %q", id)
	}

	second := &storage.Entry{Kind: notification.KindSessionStatus, ReceivedAt: time.Now().UTC()}
	if err := j.Append(ctx, second); err != nil {
		t.Fatalf("Append after reopen failed: %v", err)
	}
	if second.Seq <= first.Seq {
		t.Errorf("expected sequence to continue past %d, got %d", first.Seq, second.Seq)
	}
}

func TestBadgerJournal_TTL(t *testing.T) {
	j, err := NewBadgerJournal(&Config{InMemory: true, TTL: time.Second})
	if err != nil {
		t.Fatalf("Failed to create BadgerJournal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	if err := j.Append(ctx, &storage.Entry{Kind: notification.KindSessionStatus, ReceivedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := j.List(ctx, nil)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 live entry, got %d (err %v)", len(entries), err)
	}

	// Badger expiry has one-second granularity.
	time.Sleep(2100 * time.Millisecond)

	entries, err = j.List(ctx, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected expired entries to be hidden, got %d", len(entries))
	}
}
