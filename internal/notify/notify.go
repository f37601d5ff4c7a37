// Package notify delivers user-facing notices: desktop toasts, an audible
// chime and the log pane.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/GriffinCanCode/scan-sentry/internal/audio"
	"github.com/GriffinCanCode/scan-sentry/internal/events"
)

// Notifier shows a short titled message.
type Notifier interface {
	Notify(title, message string) error
}

// Func adapts a function to Notifier.
type Func func(title, message string) error

func (f Func) Notify(title, message string) error { return f(title, message) }

// Desktop raises an OS notification.
type Desktop struct{}

func (Desktop) Notify(title, message string) error {
	return beeep.Notify("Scan Sentry: "+title, message, "")
}

// Player is the audio dependency of Chime.
type Player interface {
	Play(ctx context.Context, tones ...audio.Tone) error
}

// Chime plays a short sound per notice. Playback runs in the background so
// the command surface never waits on audio hardware; overlapping notices are
// dropped while a chime is still sounding.
type Chime struct {
	player  Player
	tones   []audio.Tone
	timeout time.Duration

	mu      sync.Mutex
	playing bool
	wg      sync.WaitGroup
}

// NewChime plays tones (audio.Chime when empty) through p.
func NewChime(p Player, tones ...audio.Tone) *Chime {
	if len(tones) == 0 {
		tones = audio.Chime
	}
	return &Chime{player: p, tones: tones, timeout: 2 * time.Second}
}

func (c *Chime) Notify(title, _ string) error {
	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return nil
	}
	c.playing = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.player.Play(ctx, c.tones...); err != nil {
			slog.Debug("chime failed", "title", title, "error", err)
		}
		c.mu.Lock()
		c.playing = false
		c.mu.Unlock()
	}()
	return nil
}

// Wait blocks until in-flight chimes finish.
func (c *Chime) Wait() { c.wg.Wait() }

// Feed records notices in the event log so the log pane shows them.
type Feed struct {
	Log *events.Log
}

func (f Feed) Notify(title, message string) error {
	f.Log.Notice(title, message)
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(title, message string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logged wraps n so delivery failures are logged instead of returned; a
// notice is never worth failing a command over.
func Logged(n Notifier) Notifier {
	return Func(func(title, message string) error {
		slog.Info("notice", "title", title, "message", message)
		if err := n.Notify(title, message); err != nil {
			slog.Warn("notification error", "title", title, "error", err)
		}
		return nil
	})
}
