// Package scan runs the capture, recognize, decide and dispatch loop.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/scan-sentry/internal/cache"
	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/input"
	"github.com/GriffinCanCode/scan-sentry/internal/match"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
	"github.com/GriffinCanCode/scan-sentry/internal/syncx"
	"github.com/GriffinCanCode/scan-sentry/internal/trace"
)

// Pipeline is the capture-and-recognize chain the loop drives.
type Pipeline interface {
	Capture(rect image.Rectangle) (image.Image, error)
	Preprocess(img image.Image) image.Image
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// SleepFunc waits for d and reports false if ctx ended first.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// Controller owns at most one running session.
type Controller struct {
	pipeline    Pipeline
	keys        input.Keyboard
	fingerprint func(image.Image) (cache.Fingerprint, error)
	sleep       SleepFunc
	onComplete  func(Summary)
	engineState func() string

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	session *Session

	stats *syncx.Guard[Stats]
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithSleep replaces the inter-iteration wait (tests).
func WithSleep(fn SleepFunc) ControllerOption {
	return func(c *Controller) { c.sleep = fn }
}

// WithFingerprinter replaces the cache key function.
func WithFingerprinter(fn func(image.Image) (cache.Fingerprint, error)) ControllerOption {
	return func(c *Controller) { c.fingerprint = fn }
}

// WithEngineState reports the OCR engine's availability in Stats.
func WithEngineState(fn func() string) ControllerOption {
	return func(c *Controller) { c.engineState = fn }
}

// OnComplete registers a callback run on the loop goroutine after a session
// ends. It must not block on the controller.
func OnComplete(fn func(Summary)) ControllerOption {
	return func(c *Controller) { c.onComplete = fn }
}

// NewController creates an idle controller.
func NewController(p Pipeline, keys input.Keyboard, opts ...ControllerOption) *Controller {
	done := make(chan struct{})
	close(done)
	c := &Controller{
		pipeline:    p,
		keys:        keys,
		fingerprint: cache.Compute,
		sleep:       sleepContext,
		done:        done,
		stats:       syncx.NewGuard(Stats{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// loopState is owned by the loop goroutine.
type loopState struct {
	matcher  *match.Matcher
	cache    *cache.Cache
	lastText string
	stats    Stats
}

// Start snapshots r and begins scanning on a new goroutine. The loop outlives
// ctx's cancellation but keeps its values (trace IDs); use Stop to end it.
func (c *Controller) Start(ctx context.Context, r region.Region, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	rect, ok := r.Rect()
	if !ok {
		return nil, apperrors.New(apperrors.CodePrecondition, "region not set")
	}
	if opts.Interval < MinInterval {
		return nil, apperrors.Newf(apperrors.CodePrecondition, "interval %s below minimum %s", opts.Interval, MinInterval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil, apperrors.New(apperrors.CodePrecondition, "scan already running").
			WithMetadata("session", c.session.ID.String())
	}

	st, err := bootstrap(opts)
	if err != nil {
		return nil, err
	}

	snapshot := r
	snapshot.Normalize()
	sess := &Session{ID: uuid.New(), Region: snapshot, Rect: rect, Started: time.Now(), Options: opts}
	st.stats = Stats{SessionID: sess.ID.String(), Running: true, Started: sess.Started}
	c.stats.Store(st.stats)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.cancel, c.done, c.session = cancel, done, sess

	go c.run(loopCtx, sess, st, done)
	return sess, nil
}

func bootstrap(opts Options) (st *loopState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.CodeInternal, "scan bootstrap: %v", r)
		}
	}()
	return &loopState{matcher: match.New(opts.Targets), cache: cache.New(opts.CacheSize)}, nil
}

// Stop requests the running session to end. It reports whether a session was
// running; calling it when idle is a no-op.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Running reports whether a session is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Done is closed when the current (or last) session has fully ended.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Wait blocks until the current session ends or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot safe to read from any goroutine.
func (c *Controller) Stats() Stats {
	st := c.stats.Load()
	if c.engineState != nil {
		st.Engine = c.engineState()
	}
	return st
}

func (c *Controller) run(ctx context.Context, sess *Session, st *loopState, done chan struct{}) {
	ctx = trace.WithContext(ctx, trace.FromID(sess.ID))
	ctx, span := trace.StartSpan(ctx, "scan_session")
	log := trace.Logger(ctx)
	log.Info("scan started", "session", sess.ID, "rect", sess.Rect.String(), "limit", sess.Options.Limit,
		"interval", sess.Options.Interval, "targets", st.matcher.Words(), "reverse", sess.Options.Reverse)

	summary := Summary{Session: sess, Reason: StopRequested}
	defer func() {
		if r := recover(); r != nil {
			summary.Reason = Fatal
			summary.Err = apperrors.Newf(apperrors.CodeInternal, "scan loop panic: %v", r)
			log.Error("scan loop crashed", "error", summary.Err)
		}
		st.stats.Running = false
		c.stats.Store(st.stats)
		summary.Stats = st.stats
		summary.Duration = time.Since(sess.Started)

		span.SetAttr("reason", summary.Reason.String())
		span.SetAttr("scans", st.stats.Scans)
		span.End()
		log.Info("scan stopped", "reason", summary.Reason.String(), "scans", st.stats.Scans,
			"errors", st.stats.Errors, "duration", summary.Duration)

		c.mu.Lock()
		c.cancel()
		c.cancel, c.session = nil, nil
		c.mu.Unlock()
		close(done)

		if c.onComplete != nil {
			c.onComplete(summary)
		}
	}()

	summary.Reason = c.loop(ctx, sess, st, log)
}

func (c *Controller) loop(ctx context.Context, sess *Session, st *loopState, log *slog.Logger) Reason {
	opts := sess.Options
	for {
		if ctx.Err() != nil {
			return StopRequested
		}

		err := c.iterate(ctx, sess, st, log)
		if err != nil && ctx.Err() != nil {
			// Stopped mid-iteration: not a failure.
			log.Debug("scan iteration interrupted by stop", "error", err)
			return StopRequested
		}
		st.stats.Scans++
		if err != nil {
			st.stats.Errors++
			st.stats.LastError = err.Error()
			if apperrors.IsRecoverable(err) {
				log.Warn("scan iteration failed", "scan", st.stats.Scans, "code", apperrors.CodeOf(err), "error", err)
			} else {
				log.Error("scan iteration failed", "scan", st.stats.Scans, "error", err)
			}
		}
		c.stats.Store(st.stats)

		if st.stats.Scans%ThroughputEvery == 0 {
			elapsed := time.Since(sess.Started).Seconds()
			log.Debug("scan throughput", "scans", st.stats.Scans, "scans_per_sec", float64(st.stats.Scans)/elapsed,
				"errors", st.stats.Errors, "cache_hits", st.stats.CacheHits)
		}

		if opts.Limit > 0 && st.stats.Scans >= opts.Limit {
			return LimitReached
		}

		delay := opts.Interval
		if err != nil {
			delay *= ErrorBackoffFactor
		}
		if !c.sleep(ctx, delay) {
			return StopRequested
		}
	}
}

// iterate runs one capture, recognize, decide and dispatch cycle. Keys are
// only pressed once a decision exists.
func (c *Controller) iterate(ctx context.Context, sess *Session, st *loopState, log *slog.Logger) error {
	img, err := c.pipeline.Capture(sess.Rect)
	if err != nil {
		return err
	}
	img = c.pipeline.Preprocess(img)

	fp, fpErr := c.fingerprint(img)
	if fpErr != nil {
		log.Debug("fingerprint failed, bypassing cache", "error", fpErr)
	}

	var text string
	hit := false
	if fpErr == nil {
		text, hit = st.cache.Lookup(fp)
	}
	if hit {
		log.Debug("ocr cache hit", "fingerprint", fmt.Sprintf("%016x", uint64(fp)))
	} else {
		text, err = c.pipeline.Recognize(ctx, img)
		if err != nil {
			return err
		}
		if fpErr == nil {
			st.cache.Store(fp, text)
		}
	}
	cs := st.cache.Stats()
	st.stats.CacheHits, st.stats.CacheEntries, st.stats.CacheResets = int(cs.Hits), cs.Entries, int(cs.Resets)

	if text != st.lastText {
		log.Debug("ocr text changed", "text", text)
		st.lastText = text
		st.stats.LastText = text
	}

	decision := st.matcher.Decide(text, sess.Options.Reverse)
	var errs []error
	if decision.Act {
		st.stats.Matches++
		if err := c.keys.Press(sess.Options.MatchKey); err != nil {
			errs = append(errs, err)
		} else {
			log.Info("match key pressed", "key", sess.Options.MatchKey, "matched", decision.Matched, "reverse", sess.Options.Reverse)
		}
	}
	if err := c.keys.Press(sess.Options.AdvanceKey); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return apperrors.Wrap(errors.Join(errs...), apperrors.CodeDispatch, "key dispatch failed")
	}
	return nil
}
