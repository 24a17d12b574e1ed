package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goclaw/oembridge/pkg/notification"
)

// JournalTestSuite defines a test suite that can be run against any Journal implementation.
type JournalTestSuite struct {
	NewJournal func(t *testing.T) Journal
}

// RunAllTests runs all journal tests against the provided implementation.
func (s *JournalTestSuite) RunAllTests(t *testing.T) {
	t.Run("AppendAndGet", s.TestAppendAndGet)
	t.Run("ListNewestFirst", s.TestListNewestFirst)
	t.Run("ListWithKindFilter", s.TestListWithKindFilter)
	t.Run("ListWithSince", s.TestListWithSince)
	t.Run("ListWithLimit", s.TestListWithLimit)
	t.Run("PayloadIsolation", s.TestPayloadIsolation)
	t.Run("ConcurrentAppend", s.TestConcurrentAppend)
	t.Run("EntryNotFound", s.TestEntryNotFound)
	t.Run("Closed", s.TestClosed)
}

func appendEntry(t *testing.T, j Journal, kind notification.Kind, at time.Time, payload notification.Bundle) *Entry {
	t.Helper()
	e := &Entry{Kind: kind, Payload: payload, Caller: "system", ReceivedAt: at}
	if err := j.Append(context.Background(), e); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	return e
}

// TestAppendAndGet tests that appended entries get ascending sequence numbers.
func (s *JournalTestSuite) TestAppendAndGet(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	first := appendEntry(t, j, notification.KindSessionStatus, now, notification.Bundle{"session_id": "s-1"})
	second := appendEntry(t, j, notification.KindDeviceStatus, now, nil)

	if first.Seq == 0 {
		t.Fatal("expected a non-zero sequence number")
	}
	if second.Seq <= first.Seq {
		t.Errorf("expected ascending sequence numbers, got %d then %d", first.Seq, second.Seq)
	}

	got, err := j.Get(context.Background(), first.Seq)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Kind != notification.KindSessionStatus {
		t.Errorf("expected kind %s, got %s", notification.KindSessionStatus, got.Kind)
	}
	if got.Caller != "system" {
		t.Errorf("expected caller system, got %q", got.Caller)
	}
	if id, _ := got.Payload.String("session_id"); id != "s-1" {
		t.Errorf("expected session_id s-1, got %q", id)
	}
	if !got.ReceivedAt.Equal(now) {
		t.Errorf("expected received_at %v, got %v", now, got.ReceivedAt)
	}
}

// TestListNewestFirst tests list ordering.
func (s *JournalTestSuite) TestListNewestFirst(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		appendEntry(t, j, notification.KindSessionStatus, now.Add(time.Duration(i)*time.Second), nil)
	}

	entries, err := j.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq >= entries[i-1].Seq {
			t.Errorf("entries not newest first at %d: %d >= %d", i, entries[i].Seq, entries[i-1].Seq)
		}
	}
}

// TestListWithKindFilter tests filtering by kind.
func (s *JournalTestSuite) TestListWithKindFilter(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	now := time.Now().UTC()
	appendEntry(t, j, notification.KindSessionStatus, now, nil)
	appendEntry(t, j, notification.KindSessionConfig, now, nil)
	appendEntry(t, j, notification.KindRangingReport, now, nil)
	appendEntry(t, j, notification.KindSessionConfig, now, nil)

	entries, err := j.List(context.Background(), &Filter{
		Kinds: []notification.Kind{notification.KindSessionConfig},
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 session_config entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Kind != notification.KindSessionConfig {
			t.Errorf("unexpected kind %s", e.Kind)
		}
	}
}

// TestListWithSince tests dropping entries older than Since.
func (s *JournalTestSuite) TestListWithSince(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		appendEntry(t, j, notification.KindDeviceStatus, base.Add(time.Duration(i)*time.Minute), nil)
	}

	entries, err := j.List(context.Background(), &Filter{Since: base.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

// TestListWithLimit tests the limit.
func (s *JournalTestSuite) TestListWithLimit(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	now := time.Now().UTC()
	var last *Entry
	for i := 0; i < 10; i++ {
		last = appendEntry(t, j, notification.KindSessionStatus, now, nil)
	}

	entries, err := j.List(context.Background(), &Filter{Limit: 3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Seq != last.Seq {
		t.Errorf("expected newest entry %d first, got %d", last.Seq, entries[0].Seq)
	}
}

// TestPayloadIsolation tests that stored entries don't alias caller payloads.
func (s *JournalTestSuite) TestPayloadIsolation(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	payload := notification.Bundle{"state": "active"}
	e := appendEntry(t, j, notification.KindSessionStatus, time.Now().UTC(), payload)
	payload["state"] = "mutated"

	got, err := j.Get(context.Background(), e.Seq)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state, _ := got.Payload.String("state"); state != "active" {
		t.Errorf("expected stored state active, got %q", state)
	}

	got.Payload["state"] = "changed"
	again, err := j.Get(context.Background(), e.Seq)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state, _ := again.Payload.String("state"); state != "active" {
		t.Errorf("expected stored state active after caller mutation, got %q", state)
	}
}

// TestConcurrentAppend tests concurrent appends get unique sequence numbers.
func (s *JournalTestSuite) TestConcurrentAppend(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	const workers, perWorker = 8, 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seqs = make(map[uint64]bool)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				e := &Entry{Kind: notification.KindRangingReport, ReceivedAt: time.Now().UTC()}
				if err := j.Append(context.Background(), e); err != nil {
					t.Errorf("Append failed: %v", err)
					return
				}
				mu.Lock()
				seqs[e.Seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seqs) != workers*perWorker {
		t.Errorf("expected %d unique sequence numbers, got %d", workers*perWorker, len(seqs))
	}
}

// TestEntryNotFound tests Get on an unknown sequence number.
func (s *JournalTestSuite) TestEntryNotFound(t *testing.T) {
	j := s.NewJournal(t)
	defer j.Close()

	_, err := j.Get(context.Background(), 4242)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Seq != 4242 {
		t.Errorf("expected seq 4242, got %d", notFound.Seq)
	}
}

// TestClosed tests that a closed journal rejects operations.
func (s *JournalTestSuite) TestClosed(t *testing.T) {
	j := s.NewJournal(t)
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := j.Append(context.Background(), &Entry{Kind: notification.KindDeviceStatus})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Append, got %v", err)
	}
	if _, err := j.List(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from List, got %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
