// Package events keeps a bounded backlog of log lines and notices and fans
// them out to live subscribers (the WebSocket log pane).
package events

import (
	"sync"
	"time"
)

// Kind classifies an Entry.
type Kind string

const (
	KindLog    Kind = "log"
	KindNotice Kind = "notice"
	KindStatus Kind = "status"
)

// Entry is one timestamped line.
type Entry struct {
	Time    time.Time         `json:"time"`
	Kind    Kind              `json:"kind"`
	Level   string            `json:"level,omitempty"`
	Title   string            `json:"title,omitempty"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Log is a ring of recent entries plus non-blocking fan-out.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
	subs    map[int]chan Entry
	nextID  int
	dropped uint64
}

// NewLog keeps the latest maxEntries entries.
func NewLog(maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Log{
		entries: make([]Entry, 0, maxEntries),
		maxSize: maxEntries,
		subs:    make(map[int]chan Entry),
	}
}

// Add stores e and delivers it to subscribers. Slow subscribers lose entries
// rather than stalling the caller.
func (l *Log) Add(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if len(l.entries) > l.maxSize {
		l.entries = l.entries[len(l.entries)-l.maxSize:]
	}
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
			l.dropped++
		}
	}
}

// Notice records a user-facing notification.
func (l *Log) Notice(title, message string) {
	l.Add(Entry{Kind: KindNotice, Title: title, Message: message})
}

// Recent returns up to n of the newest entries, oldest first. n <= 0 returns all.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	start := 0
	if n > 0 && n < len(l.entries) {
		start = len(l.entries) - n
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Subscribe returns a channel of new entries and a cancel func that closes it.
func (l *Log) Subscribe(buffer int) (<-chan Entry, func()) {
	ch := make(chan Entry, buffer)
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(ch)
		})
	}
}

// Dropped reports entries lost to full subscriber buffers.
func (l *Log) Dropped() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}
