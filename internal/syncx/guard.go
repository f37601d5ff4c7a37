// Package syncx provides small synchronization helpers shared by the scan
// loop and the command surface.
package syncx

import "sync"

// Guard publishes a value written by one goroutine and read by many.
type Guard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *Guard[T] {
	return &Guard[T]{value: initial}
}

// Load returns a copy of the value (T should be a value type).
func (g *Guard[T]) Load() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Store replaces the value.
func (g *Guard[T]) Store(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Latch is a one-shot signal. Fire may be called any number of times;
// only the first call closes Done and reports true.
type Latch struct {
	once sync.Once
	ch   chan struct{}
	init sync.Once
}

func (l *Latch) lazy() {
	l.init.Do(func() { l.ch = make(chan struct{}) })
}

// Fire closes the latch. It returns true only for the call that closed it.
func (l *Latch) Fire() bool {
	l.lazy()
	fired := false
	l.once.Do(func() {
		close(l.ch)
		fired = true
	})
	return fired
}

// Done is closed once Fire has been called.
func (l *Latch) Done() <-chan struct{} {
	l.lazy()
	return l.ch
}

// Fired reports whether Fire has been called.
func (l *Latch) Fired() bool {
	select {
	case <-l.Done():
		return true
	default:
		return false
	}
}
