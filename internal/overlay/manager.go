// Package overlay draws the region outline in a separate process so its GUI
// event loop never shares a thread with the scan loop. The two sides share a
// single boolean, stored in a flag file the parent owns.
package overlay

import (
	"errors"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
)

// ScanState lets the manager refuse to draw over an active capture.
type ScanState interface {
	Running() bool
}

// Handle owns one child and the owner side of its flag.
type Handle struct {
	Rect    image.Rectangle
	Flag    *Flag
	Process Process
	Started time.Time
}

// Manager keeps at most one overlay alive.
type Manager struct {
	spawner     Spawner
	scan        ScanState
	joinTimeout time.Duration
	flagDir     string

	mu     sync.Mutex
	handle *Handle
}

// Option customizes a Manager.
type Option func(*Manager)

// WithJoinTimeout bounds how long Hide waits before killing the child.
func WithJoinTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.joinTimeout = d
		}
	}
}

// WithFlagDir places flag files in dir.
func WithFlagDir(dir string) Option {
	return func(m *Manager) { m.flagDir = dir }
}

// NewManager creates an inactive manager.
func NewManager(spawner Spawner, scan ScanState, opts ...Option) *Manager {
	m := &Manager{spawner: spawner, scan: scan, joinTimeout: DefaultJoinTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Show draws r, replacing any overlay already on screen.
func (m *Manager) Show(r region.Region) error {
	rect, ok := r.Rect()
	if !ok {
		return apperrors.New(apperrors.CodePrecondition, "region not set")
	}
	if rect.Empty() {
		return apperrors.Newf(apperrors.CodePrecondition, "region %s has no area", r)
	}
	if m.scan != nil && m.scan.Running() {
		return apperrors.New(apperrors.CodePrecondition, "overlay unavailable while scanning")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		if err := m.hideLocked(); err != nil {
			slog.Warn("previous overlay cleanup failed", "error", err)
		}
	}

	flag, err := NewFlag(m.flagDir)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeProcessLifecycle, "create overlay flag")
	}
	proc, err := m.spawner.Spawn(rect, flag.Path())
	if err != nil {
		_ = flag.Remove()
		return apperrors.Wrap(err, apperrors.CodeProcessLifecycle, "spawn overlay")
	}

	m.handle = &Handle{Rect: rect, Flag: flag, Process: proc, Started: time.Now()}
	slog.Info("overlay shown", "rect", rect.String(), "pid", proc.Pid())
	return nil
}

// Hide stops the overlay: clear the flag, wait up to the join timeout, then
// kill. The manager is inactive afterwards even when cleanup reports an error.
func (m *Manager) Hide() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil
	}
	return m.hideLocked()
}

func (m *Manager) hideLocked() error {
	h := m.handle
	m.handle = nil

	var errs []error
	if _, err := h.Flag.Clear(); err != nil {
		errs = append(errs, err)
	}

	timer := time.NewTimer(m.joinTimeout)
	defer timer.Stop()
	select {
	case <-h.Process.Done():
		slog.Info("overlay hidden", "pid", h.Process.Pid(), "shown_for", time.Since(h.Started))
	case <-timer.C:
		slog.Warn("overlay did not exit in time, killing", "pid", h.Process.Pid(), "timeout", m.joinTimeout)
		if err := h.Process.Kill(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := h.Flag.Remove(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		err := apperrors.Wrap(errors.Join(errs...), apperrors.CodeProcessLifecycle, "overlay cleanup").
			WithMetadata("pid", strconv.Itoa(h.Process.Pid()))
		slog.Error("overlay cleanup failed", "error", err)
		return err
	}
	return nil
}

// Toggle hides a visible overlay or shows r. It reports whether the overlay
// is visible afterwards.
func (m *Manager) Toggle(r region.Region) (bool, error) {
	if m.Active() {
		return false, m.Hide()
	}
	if !r.IsDefined() {
		return false, apperrors.New(apperrors.CodePrecondition, "region not set")
	}
	if err := m.Show(r); err != nil {
		return false, err
	}
	return true, nil
}

// Active reports whether a live overlay child exists. A child that exited
// on its own is reaped here.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return false
	}
	select {
	case <-m.handle.Process.Done():
		slog.Warn("overlay exited on its own", "pid", m.handle.Process.Pid())
		_ = m.handle.Flag.Remove()
		m.handle = nil
		return false
	default:
		return true
	}
}
