// Package listener provides the built-in OEM extension listener the bridge
// registers at startup when no vendor listener is plugged in.
package listener

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/goclaw/oembridge/pkg/identity"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/notification"
	"github.com/goclaw/oembridge/pkg/storage"
)

const defaultHistory = 128

// Config configures a Listener.
type Config struct {
	// SessionConfigStatus is answered for every session configuration.
	SessionConfigStatus int32

	// ReportTags are set on every ranging report before it is returned.
	ReportTags map[string]string

	// History bounds the number of records kept.
	History int

	// Journal, when set, also receives every record.
	Journal storage.Journal
}

// Record is one notification seen by the listener.
type Record struct {
	Kind       notification.Kind   `json:"kind"`
	Payload    notification.Bundle `json:"payload,omitempty"`
	Caller     string              `json:"caller,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Listener logs every notification, keeps the most recent ones and answers
// request-response kinds from its configuration.
type Listener struct {
	status  int32
	tags    map[string]string
	log     logger.Logger
	journal storage.Journal

	mu       sync.RWMutex
	maxSize  int
	history  *list.List
	received map[notification.Kind]int64
}

// New creates a Listener. A nil logger uses the global logger.
func New(cfg Config, log logger.Logger) *Listener {
	if log == nil {
		log = logger.Global().With("component", "listener")
	}
	if cfg.History <= 0 {
		cfg.History = defaultHistory
	}
	tags := make(map[string]string, len(cfg.ReportTags))
	for k, v := range cfg.ReportTags {
		tags[k] = v
	}
	return &Listener{
		status:   cfg.SessionConfigStatus,
		tags:     tags,
		log:      log,
		journal:  cfg.Journal,
		maxSize:  cfg.History,
		history:  list.New(),
		received: make(map[notification.Kind]int64),
	}
}

func (l *Listener) OnSessionStatus(ctx context.Context, status notification.Bundle) {
	l.record(ctx, notification.KindSessionStatus, status)
	l.log.InfoContext(ctx, "session status", "payload", status)
}

func (l *Listener) OnDeviceStatus(ctx context.Context, status notification.Bundle) {
	l.record(ctx, notification.KindDeviceStatus, status)
	l.log.InfoContext(ctx, "device status", "payload", status)
}

func (l *Listener) OnSessionConfig(ctx context.Context, config notification.Bundle) (int32, error) {
	l.record(ctx, notification.KindSessionConfig, config)
	l.log.InfoContext(ctx, "session config", "payload", config, "status", l.status)
	return l.status, nil
}

func (l *Listener) OnRangingReport(ctx context.Context, report notification.Bundle) (notification.Bundle, error) {
	l.record(ctx, notification.KindRangingReport, report)
	if len(l.tags) == 0 {
		return report, nil
	}
	out := report.Clone()
	if out == nil {
		out = make(notification.Bundle, len(l.tags))
	}
	for k, v := range l.tags {
		out[k] = v
	}
	l.log.DebugContext(ctx, "ranging report tagged", "tags", len(l.tags))
	return out, nil
}

// History returns the kept records, oldest first.
func (l *Listener) History() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, 0, l.history.Len())
	for e := l.history.Front(); e != nil; e = e.Next() {
		r := e.Value.(Record)
		r.Payload = r.Payload.Clone()
		out = append(out, r)
	}
	return out
}

// Counts returns the number of notifications received per kind, including
// ones already evicted from the history.
func (l *Listener) Counts() map[notification.Kind]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[notification.Kind]int64, len(l.received))
	for k, v := range l.received {
		out[k] = v
	}
	return out
}

func (l *Listener) record(ctx context.Context, kind notification.Kind, payload notification.Bundle) {
	r := Record{
		Kind:       kind,
		Payload:    payload.Clone(),
		ReceivedAt: time.Now().UTC(),
	}
	if c, ok := identity.CallerFrom(ctx); ok {
		r.Caller = c.Name
	}

	l.mu.Lock()
	l.received[kind]++
	if l.history.Len() >= l.maxSize {
		l.history.Remove(l.history.Front())
	}
	l.history.PushBack(r)
	l.mu.Unlock()

	if l.journal == nil {
		return
	}
	err := l.journal.Append(ctx, &storage.Entry{
		Kind:       r.Kind,
		Payload:    r.Payload,
		Caller:     r.Caller,
		ReceivedAt: r.ReceivedAt,
	})
	if err != nil {
		l.log.WarnContext(ctx, "journal append failed", "kind", kind, "error", err)
	}
}

// Journal returns the configured journal, or nil.
func (l *Listener) Journal() storage.Journal {
	return l.journal
}
