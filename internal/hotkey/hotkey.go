// Package hotkey binds the global function keys to session commands.
package hotkey

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/GriffinCanCode/scan-sentry/internal/session"
)

// Hook is one registered global key.
type Hook interface {
	Register() error
	Unregister() error
	Keydown() <-chan struct{}
}

// Factory creates an unregistered hook for a key name such as "F7".
type Factory func(key string) (Hook, error)

// Binding ties a key to the command it runs.
type Binding struct {
	Key     string
	Command session.Command
}

// DefaultBindings are F7 through F12. Corners are taken at the pointer
// immediately since the user is already pointing when the key goes down.
func DefaultBindings() []Binding {
	return []Binding{
		{Key: "F7", Command: session.Command{Name: session.CmdSetCorner, Corner: "top_left", Immediate: true}},
		{Key: "F8", Command: session.Command{Name: session.CmdSetCorner, Corner: "bottom_right", Immediate: true}},
		{Key: "F9", Command: session.Command{Name: session.CmdStartScan}},
		{Key: "F10", Command: session.Command{Name: session.CmdStopScan}},
		{Key: "F11", Command: session.Command{Name: session.CmdToggleOverlay}},
		{Key: "F12", Command: session.Command{Name: session.CmdExit}},
	}
}

// Listener owns the registered hooks.
type Listener struct {
	exec    session.Executor
	factory Factory

	mu    sync.Mutex
	hooks []Hook
	wg    sync.WaitGroup
}

// NewListener creates a listener; a nil factory uses the platform hooks.
func NewListener(exec session.Executor, factory Factory) *Listener {
	if factory == nil {
		factory = platformFactory
	}
	return &Listener{exec: exec, factory: factory}
}

// Start registers bindings and dispatches key presses until ctx is done or
// Close is called. A key that fails to register is logged and skipped; the
// error is returned only when none could be registered.
func (l *Listener) Start(ctx context.Context, bindings []Binding) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, b := range bindings {
		h, err := l.factory(b.Key)
		if err == nil {
			err = h.Register()
		}
		if err != nil {
			slog.Warn("hotkey unavailable", "key", b.Key, "error", err)
			errs = append(errs, err)
			continue
		}
		l.hooks = append(l.hooks, h)
		l.wg.Add(1)
		go l.dispatch(ctx, b, h)
	}

	if len(l.hooks) == 0 && len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("hotkeys registered", "count", len(l.hooks))
	return nil
}

func (l *Listener) dispatch(ctx context.Context, b Binding, h Hook) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-h.Keydown():
			if !ok {
				return
			}
			slog.Debug("hotkey pressed", "key", b.Key, "command", b.Command.Name)
			if _, err := l.exec.Execute(ctx, b.Command); err != nil {
				slog.Warn("hotkey command failed", "key", b.Key, "command", b.Command.Name, "error", err)
			}
		}
	}
}

// Close unregisters every hook and waits for the dispatchers to return.
func (l *Listener) Close() error {
	l.mu.Lock()
	hooks := l.hooks
	l.hooks = nil
	l.mu.Unlock()

	var errs []error
	for _, h := range hooks {
		if err := h.Unregister(); err != nil {
			errs = append(errs, err)
		}
	}
	l.wg.Wait()
	return errors.Join(errs...)
}
