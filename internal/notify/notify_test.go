package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/scan-sentry/internal/audio"
	"github.com/GriffinCanCode/scan-sentry/internal/events"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recorder) Notify(title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, title+": "+message)
	return r.err
}

func TestMultiDeliversToAll(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("no dbus")}
	c := &recorder{}

	err := Multi{a, b, nil, c}.Notify("Started", "Scanning started.")
	if err == nil {
		t.Error("Multi should surface delivery errors")
	}
	if len(a.calls) != 1 || len(c.calls) != 1 {
		t.Error("a failing notifier must not block the others")
	}
}

func TestLoggedSwallowsErrors(t *testing.T) {
	inner := &recorder{err: errors.New("no dbus")}
	if err := Logged(inner).Notify("Error", "Region not defined."); err != nil {
		t.Errorf("Logged().Notify() = %v, want nil", err)
	}
	if len(inner.calls) != 1 {
		t.Error("inner notifier should still be called")
	}
}

func TestThrottle(t *testing.T) {
	inner := &recorder{}
	th := NewThrottle(inner, 10*time.Second)
	now := time.Unix(1000, 0)
	th.now = func() time.Time { return now }

	_ = th.Notify("Error", "Region not defined.")
	_ = th.Notify("Error", "Region not defined.")
	_ = th.Notify("Started", "Scanning started.")
	if len(inner.calls) != 2 {
		t.Fatalf("calls = %v, want 2 distinct", inner.calls)
	}

	now = now.Add(11 * time.Second)
	_ = th.Notify("Error", "Region not defined.")
	if len(inner.calls) != 3 {
		t.Errorf("repeat after cooldown should pass, calls = %v", inner.calls)
	}
}

type fakePlayer struct {
	mu    sync.Mutex
	plays int
	gate  chan struct{}
}

func (p *fakePlayer) Play(ctx context.Context, tones ...audio.Tone) error {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	p.plays++
	p.mu.Unlock()
	return nil
}

func TestChimePlaysInBackground(t *testing.T) {
	p := &fakePlayer{gate: make(chan struct{})}
	c := NewChime(p)

	if err := c.Notify("Started", ""); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	// second notice while the first still sounds is dropped
	_ = c.Notify("Stopped", "")
	close(p.gate)
	c.Wait()

	if p.plays != 1 {
		t.Errorf("plays = %d, want 1", p.plays)
	}

	_ = c.Notify("Again", "")
	c.Wait()
	if p.plays != 2 {
		t.Errorf("plays = %d, want 2", p.plays)
	}
}

func TestFeed(t *testing.T) {
	l := events.NewLog(5)
	_ = Feed{Log: l}.Notify("Stopped", "Scanning has been stopped.")
	got := l.Recent(0)
	if len(got) != 1 || got[0].Kind != events.KindNotice || got[0].Title != "Stopped" {
		t.Errorf("entries = %+v", got)
	}
}
