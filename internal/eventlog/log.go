package eventlog

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docrows/constants"
)

// Entry is the stable shape display surfaces depend on.
type Entry struct {
	Timestamp time.Time           `json:"timestamp"`
	Action    string              `json:"action"`
	Details   string              `json:"details"`
	Status    constants.LogStatus `json:"status"`
}

// Observer is notified after every append, in append order.
type Observer interface {
	Observe(Entry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Entry)

func (f ObserverFunc) Observe(e Entry) { f(e) }

// Log is an append-only, insertion-ordered record of workflow events.
type Log struct {
	mu        sync.RWMutex
	notifyMu  sync.Mutex
	entries   []Entry
	observers []Observer
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger mirrors every entry to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(l *Log) {
		if o != nil {
			l.observers = append(l.observers, o)
		}
	}
}

func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, o := range opts {
		o(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Append records an entry stamped with the current time and returns it.
func (l *Log) Append(action, details string, status constants.LogStatus) Entry {
	l.mu.Lock()
	e := Entry{Timestamp: l.now(), Action: action, Details: details, Status: status}
	l.entries = append(l.entries, e)
	observers := l.observers
	// notifyMu is taken before mu is released so observers see entries in log order.
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	l.mu.Unlock()

	l.logger.Log(context.Background(), levelFor(status), "workflow.event",
		"action", action,
		"status", string(status),
		"details", details,
	)
	for _, o := range observers {
		o.Observe(e)
	}
	return e
}

// Success, Info and Error are shorthands for Append.
func (l *Log) Success(action, details string) Entry {
	return l.Append(action, details, constants.LogSuccess)
}

func (l *Log) Info(action, details string) Entry {
	return l.Append(action, details, constants.LogInfo)
}

func (l *Log) Error(action, details string) Entry {
	return l.Append(action, details, constants.LogError)
}

// Entries returns a copy of every entry in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// All iterates a snapshot of the log in insertion order.
func (l *Log) All() iter.Seq2[int, Entry] {
	snapshot := l.Entries()
	return func(yield func(int, Entry) bool) {
		for i, e := range snapshot {
			if !yield(i, e) {
				return
			}
		}
	}
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func levelFor(s constants.LogStatus) slog.Level {
	if s == constants.LogError {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
