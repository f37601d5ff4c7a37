// Package ocr extracts text from images.
package ocr

import (
	"context"
	"image"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/resilience"
)

// Engine recognizes text in an image. Finding no text is not an error: it
// yields an empty string.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// Guarded wraps an engine in a circuit breaker so a dead engine fails fast
// instead of paying its startup cost on every scan iteration.
type Guarded struct {
	Engine
	breaker *resilience.Breaker
}

// WithBreaker guards e with b.
func WithBreaker(e Engine, b *resilience.Breaker) *Guarded {
	return &Guarded{Engine: e, breaker: b}
}

// Recognize implements Engine. A call that fails after ctx ended is not
// counted against the engine.
func (g *Guarded) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := g.breaker.Allow(); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeRecognition, "ocr engine unavailable")
	}
	text, err := g.Engine.Recognize(ctx, img)
	switch {
	case err == nil:
		g.breaker.Success()
	case ctx.Err() == nil:
		g.breaker.Failure()
	}
	return text, err
}

// Breaker exposes the guard for status reporting.
func (g *Guarded) Breaker() *resilience.Breaker { return g.breaker }
