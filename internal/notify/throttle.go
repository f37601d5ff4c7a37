package notify

import (
	"sync"
	"time"
)

// Throttle suppresses a repeat of the same title and message within cooldown.
type Throttle struct {
	next     Notifier
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewThrottle wraps next.
func NewThrottle(next Notifier, cooldown time.Duration) *Throttle {
	return &Throttle{next: next, cooldown: cooldown, now: time.Now, last: make(map[string]time.Time)}
}

func (t *Throttle) Notify(title, message string) error {
	key := title + "\x00" + message
	now := t.now()

	t.mu.Lock()
	if prev, ok := t.last[key]; ok && now.Sub(prev) < t.cooldown {
		t.mu.Unlock()
		return nil
	}
	t.last[key] = now
	t.mu.Unlock()

	return t.next.Notify(title, message)
}
