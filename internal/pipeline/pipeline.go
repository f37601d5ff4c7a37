// Package pipeline turns a screen rectangle into recognized text:
// capture, preprocess, recognize.
package pipeline

import (
	"context"
	"image"
	"log/slog"

	"github.com/GriffinCanCode/scan-sentry/internal/ocr"
	"github.com/GriffinCanCode/scan-sentry/internal/screen"
)

// Pipeline chains a capturer, a preprocessing strategy and an OCR engine.
type Pipeline struct {
	capturer screen.Capturer
	pre      Preprocessor
	engine   ocr.Engine
	scale    float64
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithScale upscales captures before preprocessing.
func WithScale(factor float64) Option {
	return func(p *Pipeline) { p.scale = factor }
}

// New creates a pipeline. A nil preprocessor disables preprocessing.
func New(capturer screen.Capturer, pre Preprocessor, engine ocr.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{capturer: capturer, pre: pre, engine: engine, scale: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capture grabs exactly rect.
func (p *Pipeline) Capture(rect image.Rectangle) (image.Image, error) {
	img, err := p.capturer.Capture(rect)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Preprocess never fails: a strategy fault is logged and the input returned as is.
func (p *Pipeline) Preprocess(img image.Image) image.Image {
	scaled := Scale(img, p.scale)
	if p.pre == nil {
		return scaled
	}
	out, err := p.pre.Apply(scaled)
	if err != nil || out == nil {
		slog.Warn("preprocess failed, using raw capture", "strategy", p.pre.Name(), "error", err)
		return img
	}
	return out
}

// Recognize runs the OCR engine.
func (p *Pipeline) Recognize(ctx context.Context, img image.Image) (string, error) {
	return p.engine.Recognize(ctx, img)
}

// Strategy names the active preprocessing strategy.
func (p *Pipeline) Strategy() string {
	if p.pre == nil {
		return "none"
	}
	return p.pre.Name()
}

// EngineState reports the OCR circuit breaker state, or "" when the engine
// is not guarded.
func (p *Pipeline) EngineState() string {
	if g, ok := p.engine.(*ocr.Guarded); ok {
		return g.Breaker().State().String()
	}
	return ""
}

// Close releases the capturer and the engine.
func (p *Pipeline) Close() error {
	p.capturer.Close()
	return p.engine.Close()
}
