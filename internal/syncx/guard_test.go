package syncx

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGuardLoadStore(t *testing.T) {
	g := NewGuard(42)

	if got := g.Load(); got != 42 {
		t.Errorf("Load() = %d, want 42", got)
	}

	g.Store(100)
	if got := g.Load(); got != 100 {
		t.Errorf("Load() after Store = %d, want 100", got)
	}
}

func TestGuardConcurrent(t *testing.T) {
	type pair struct{ a, b int }
	g := NewGuard(pair{})
	var torn atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			g.Store(pair{i, i})
		}(i)
		go func() {
			defer wg.Done()
			if p := g.Load(); p.a != p.b {
				torn.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := torn.Load(); n != 0 {
		t.Errorf("%d loads saw a partially stored value", n)
	}
}

func TestLatchFiresOnce(t *testing.T) {
	var l Latch
	if l.Fired() {
		t.Fatal("zero Latch should not be fired")
	}

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Fire() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("Fire returned true %d times, want 1", winners.Load())
	}
	select {
	case <-l.Done():
	default:
		t.Error("Done should be closed after Fire")
	}
}
