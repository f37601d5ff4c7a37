// Package session owns the region, the scan controller and the overlay, and
// exposes the command surface shared by hotkeys, HTTP and gRPC.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/scan-sentry/internal/config"
	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/input"
	"github.com/GriffinCanCode/scan-sentry/internal/notify"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
	"github.com/GriffinCanCode/scan-sentry/internal/scan"
	"github.com/GriffinCanCode/scan-sentry/internal/syncx"
	"github.com/GriffinCanCode/scan-sentry/internal/trace"
)

// Scanner is the scan loop controller.
type Scanner interface {
	Start(ctx context.Context, r region.Region, opts scan.Options) (*scan.Session, error)
	Stop() bool
	Running() bool
	Wait(ctx context.Context) error
	Stats() scan.Stats
}

// Overlay is the overlay lifecycle manager.
type Overlay interface {
	Show(r region.Region) error
	Hide() error
	Toggle(r region.Region) (bool, error)
	Active() bool
}

// Session serializes commands with one mutex: the region and settings are
// only ever touched while it is held.
type Session struct {
	scanner  Scanner
	overlay  Overlay
	cursor   input.Cursor
	notifier notify.Notifier

	mu       sync.Mutex
	region   region.Region
	settings Settings

	exit syncx.Latch
}

// New creates an idle session.
func New(scanner Scanner, overlay Overlay, cursor input.Cursor, notifier notify.Notifier, settings Settings) *Session {
	if notifier == nil {
		notifier = notify.Func(func(string, string) error { return nil })
	}
	return &Session{
		scanner:  scanner,
		overlay:  overlay,
		cursor:   cursor,
		notifier: notifier,
		settings: settings,
	}
}

func (s *Session) closedErr() error {
	if s.exit.Fired() {
		return apperrors.New(apperrors.CodePrecondition, "session is shutting down")
	}
	return nil
}

// State derives the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.scanner.Running():
		return Scanning
	case s.overlay.Active():
		return OverlayShowing
	case s.region.IsDefined():
		return RegionReady
	case s.region.IsPartial():
		return RegionPartial
	default:
		return Idle
	}
}

// SetCorner stores the pointer position as corner which, after the
// configured delay that gives the user time to move the mouse.
func (s *Session) SetCorner(ctx context.Context, which region.Corner) (region.Point, error) {
	s.mu.Lock()
	delay := s.settings.CornerDelay
	s.mu.Unlock()
	return s.cornerFromCursor(ctx, which, delay)
}

// SetCornerNow is SetCorner without the delay; hotkeys use it since the
// pointer is already in place when the key is pressed.
func (s *Session) SetCornerNow(ctx context.Context, which region.Corner) (region.Point, error) {
	return s.cornerFromCursor(ctx, which, 0)
}

func (s *Session) cornerFromCursor(ctx context.Context, which region.Corner, delay time.Duration) (region.Point, error) {
	if err := s.closedErr(); err != nil {
		return region.Point{}, err
	}
	if delay > 0 {
		slog.Info("move the pointer to the corner", "corner", which.String(), "delay", delay)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return region.Point{}, ctx.Err()
		case <-t.C:
		}
	}

	p, err := s.cursor.Position()
	if err != nil {
		return region.Point{}, apperrors.Wrap(err, apperrors.CodeUnavailable, "read cursor position")
	}
	return p, s.SetCornerAt(which, p)
}

// SetCornerAt stores p as corner which. A visible overlay is hidden first and
// redrawn with the new coordinates if the region is still complete.
func (s *Session) SetCornerAt(which region.Corner, p region.Point) error {
	if err := s.closedErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reshapeLocked(func() {
		s.region.SetCorner(which, p)
		slog.Info("corner set", "corner", which.String(), "point", p.String())
	})

	if s.settings.Autosave {
		if err := s.saveLocked(); err != nil {
			slog.Warn("autosave failed", "error", err)
		}
	}
	return nil
}

// reshapeLocked runs change, which may move region corners. A visible overlay
// is hidden first and redrawn over the new region if it is still complete.
func (s *Session) reshapeLocked(change func()) {
	wasShowing := s.overlay.Active()
	if wasShowing {
		if err := s.overlay.Hide(); err != nil {
			slog.Warn("hiding overlay before corner change", "error", err)
		}
	}

	change()

	if !wasShowing {
		return
	}
	if !s.region.IsDefined() {
		slog.Info("still need both region corners to show overlay")
		return
	}
	if err := s.overlay.Show(s.region); err != nil {
		slog.Warn("redrawing overlay", "error", err)
	}
}

// StartScan begins a session over the current region. limit 0 is unbounded.
func (s *Session) StartScan(ctx context.Context, limit int) (*scan.Session, error) {
	if err := s.closedErr(); err != nil {
		return nil, err
	}
	ctx, span := trace.StartSpan(ctx, "start_scan")
	defer span.End()
	log := trace.Logger(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.region.IsDefined() {
		log.Warn("please set both region corners first")
		_ = s.notifier.Notify(TitleError, MsgNoRegion)
		return nil, apperrors.New(apperrors.CodePrecondition, "region not set")
	}
	if s.scanner.Running() {
		log.Info("already scanning")
		return nil, apperrors.New(apperrors.CodePrecondition, "scan already running")
	}
	if s.overlay.Active() {
		if err := s.overlay.Hide(); err != nil {
			log.Warn("hiding overlay before scan", "error", err)
		}
		log.Info("overlay deactivated")
	}

	opts := scan.Options{
		Interval:   s.settings.Interval,
		Limit:      limit,
		Targets:    slices.Clone(s.settings.Targets),
		Reverse:    s.settings.Reverse,
		MatchKey:   s.settings.MatchKey,
		AdvanceKey: s.settings.AdvanceKey,
		CacheSize:  s.settings.CacheSize,
	}
	sess, err := s.scanner.Start(ctx, s.region, opts)
	if err != nil {
		return nil, err
	}
	span.SetAttr("session", sess.ID.String())
	_ = s.notifier.Notify(TitleStarted, MsgStarted)
	return sess, nil
}

// StopScan ends the running session, if any, and hides any overlay.
func (s *Session) StopScan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Session) stopLocked(ctx context.Context) error {
	var err error
	if s.scanner.Stop() {
		waitCtx, cancel := context.WithTimeout(ctx, StopWaitTimeout)
		defer cancel()
		if werr := s.scanner.Wait(waitCtx); werr != nil {
			err = apperrors.Wrap(werr, apperrors.CodeInternal, "scan loop did not stop in time")
			slog.Error("stop scan", "error", err)
		}
		_ = s.notifier.Notify(TitleStopped, MsgStopped)
	} else {
		slog.Info("not currently scanning")
	}

	if s.overlay.Active() {
		if herr := s.overlay.Hide(); herr != nil {
			slog.Warn("hiding overlay on stop", "error", herr)
		}
	}
	return err
}

// ToggleOverlay shows or hides the region outline and reports visibility.
func (s *Session) ToggleOverlay() (bool, error) {
	if err := s.closedErr(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	visible, err := s.overlay.Toggle(s.region)
	if err != nil {
		if !s.region.IsDefined() {
			_ = s.notifier.Notify(TitleError, MsgNoRegion)
		}
		slog.Warn("toggle overlay", "error", err)
		return visible, err
	}
	if visible {
		slog.Info("overlay activated")
	} else {
		slog.Info("overlay deactivated")
	}
	return visible, nil
}

// Configure applies p to the session settings. A running scan keeps the
// settings it started with.
func (s *Session) Configure(p Patch) error {
	if err := s.closedErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Interval != nil {
		if *p.Interval < scan.MinInterval {
			return apperrors.Newf(apperrors.CodePrecondition, "interval %s below minimum %s", *p.Interval, scan.MinInterval)
		}
		s.settings.Interval = *p.Interval
	}
	if p.Limit != nil {
		s.settings.Limit = max(*p.Limit, 0)
	}
	if p.Targets != nil {
		s.settings.Targets = config.SplitList(strings.Join(p.Targets, ","))
	}
	if p.Reverse != nil {
		s.settings.Reverse = *p.Reverse
	}
	slog.Info("settings updated", "interval", s.settings.Interval, "limit", s.settings.Limit,
		"targets", s.settings.Targets, "reverse", s.settings.Reverse)
	return nil
}

// SaveConfig writes the region and settings to the config file.
func (s *Session) SaveConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Session) saveLocked() error {
	f := &config.File{
		TargetWords:  slices.Clone(s.settings.Targets),
		ScanInterval: &s.settings.Interval,
		ReverseLogic: &s.settings.Reverse,
	}
	if p, ok := s.region.Corner(region.TopLeft); ok {
		f.TopLeft = &p
	}
	if p, ok := s.region.Corner(region.BottomRight); ok {
		f.BottomRight = &p
	}
	if err := config.SaveFile(s.settings.ConfigFile, f); err != nil {
		if apperrors.IsCode(err, apperrors.CodeConfigMissing) {
			slog.Info("no config file specified, configuration not saved")
		} else {
			slog.Error("saving configuration", "error", err)
		}
		return err
	}
	slog.Info("configuration saved", "path", s.settings.ConfigFile)
	return nil
}

// LoadConfig reads the config file. Bad lines are logged and skipped; a
// missing file leaves the current settings in place.
func (s *Session) LoadConfig() error {
	if err := s.closedErr(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := config.LoadFile(s.settings.ConfigFile)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeConfigMissing) {
			slog.Info("no config file found, using default settings", "path", s.settings.ConfigFile)
		} else {
			slog.Error("loading configuration", "error", err)
		}
		if f == nil {
			return err
		}
	}

	for _, p := range f.Problems {
		slog.Warn("config line skipped", "error", p)
	}
	if f.TopLeft != nil || f.BottomRight != nil {
		s.reshapeLocked(func() {
			if f.TopLeft != nil {
				s.region.SetCorner(region.TopLeft, *f.TopLeft)
				slog.Info("loaded top_left", "point", f.TopLeft.String())
			}
			if f.BottomRight != nil {
				s.region.SetCorner(region.BottomRight, *f.BottomRight)
				slog.Info("loaded bottom_right", "point", f.BottomRight.String())
			}
		})
	}
	if f.TargetWords != nil {
		s.settings.Targets = f.TargetWords
		slog.Info("loaded target words", "targets", f.TargetWords)
	}
	if f.ScanInterval != nil {
		s.settings.Interval = *f.ScanInterval
		slog.Info("loaded scan interval", "interval", *f.ScanInterval)
	}
	if f.ReverseLogic != nil {
		s.settings.Reverse = *f.ReverseLogic
		slog.Info("loaded reverse logic", "reverse", *f.ReverseLogic)
	}
	slog.Info("configuration loaded", "path", s.settings.ConfigFile, "problems", len(f.Problems))
	return err
}

// ScanFinished is the scan controller's completion hook. It runs on the loop
// goroutine and must not take the session lock.
func (s *Session) ScanFinished(sum scan.Summary) {
	switch sum.Reason {
	case scan.LimitReached:
		_ = s.notifier.Notify(TitleLimit, fmt.Sprintf(MsgLimitFmt, sum.Session.Options.Limit))
	case scan.Fatal:
		_ = s.notifier.Notify(TitleCrashed, fmt.Sprintf(MsgCrashedFmt, sum.Err))
	}
}

// Exit stops scanning and tears down the overlay, then closes Done. Only the
// first call does the work.
func (s *Session) Exit(ctx context.Context) error {
	if !s.exit.Fire() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Info("exiting")
	err := s.stopLocked(ctx)
	if herr := s.overlay.Hide(); herr != nil && err == nil {
		err = herr
	}
	return err
}

// Done is closed once Exit has been called.
func (s *Session) Done() <-chan struct{} { return s.exit.Done() }

// Settings returns a copy of the session settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.settings
	st.Targets = slices.Clone(st.Targets)
	return st
}

// Status reports state, region, settings and scan counters.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:      s.stateLocked().String(),
		Region:     s.region.String(),
		Overlay:    s.overlay.Active(),
		Targets:    slices.Clone(s.settings.Targets),
		Reverse:    s.settings.Reverse,
		Interval:   s.settings.Interval.Seconds(),
		Limit:      s.settings.Limit,
		ConfigFile: s.settings.ConfigFile,
		Scan:       s.scanner.Stats(),
	}
	if p, ok := s.region.Corner(region.TopLeft); ok {
		st.TopLeft = &p
	}
	if p, ok := s.region.Corner(region.BottomRight); ok {
		st.BottomRight = &p
	}
	return st
}
