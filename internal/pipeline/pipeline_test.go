package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/GriffinCanCode/scan-sentry/internal/ocr"
	"github.com/GriffinCanCode/scan-sentry/internal/resilience"
)

type fakeCapturer struct {
	img   *image.RGBA
	err   error
	rects []image.Rectangle
}

func (f *fakeCapturer) Capture(rect image.Rectangle) (*image.RGBA, error) {
	f.rects = append(f.rects, rect)
	return f.img, f.err
}

func (f *fakeCapturer) Close() {}

type fakeEngine struct {
	text string
	err  error
}

func (f *fakeEngine) Recognize(context.Context, image.Image) (string, error) { return f.text, f.err }
func (f *fakeEngine) Close() error                                        { return nil }

type failingPre struct{}

func (failingPre) Name() string                               { return "broken" }
func (failingPre) Apply(image.Image) (image.Image, error) { return nil, errors.New("boom") }

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestGlobalThreshold(t *testing.T) {
	out, err := GlobalThreshold{Cutoff: GlobalCutoff}.Apply(gradient(256, 2))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	gray, ok := out.(*image.Gray)
	if !ok {
		t.Fatalf("Apply() returned %T, want *image.Gray", out)
	}
	for x := 0; x < 256; x++ {
		got := gray.GrayAt(x, 0).Y
		want := uint8(0)
		if x > GlobalCutoff {
			want = 0xff
		}
		if got != want {
			t.Fatalf("pixel %d = %d, want %d", x, got, want)
		}
	}
}

func TestGlobalThresholdOffsetBounds(t *testing.T) {
	src := gradient(16, 4).SubImage(image.Rect(8, 1, 16, 3))
	out, err := GlobalThreshold{Cutoff: 10}.Apply(src)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 8, 2) {
		t.Errorf("bounds = %v, want zero-origin 8x2", out.Bounds())
	}
}

func TestNewPreprocessor(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", StrategyAdaptive, false},
		{"adaptive", StrategyAdaptive, false},
		{"GLOBAL", StrategyGlobal, false},
		{"sharpen", "", true},
	}
	for _, tt := range tests {
		p, err := NewPreprocessor(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewPreprocessor(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && p.Name() != tt.want {
			t.Errorf("NewPreprocessor(%q).Name() = %q, want %q", tt.name, p.Name(), tt.want)
		}
	}
}

func TestScale(t *testing.T) {
	src := gradient(10, 5)
	if Scale(src, 1) != image.Image(src) {
		t.Error("factor 1 should return the input")
	}
	if got := Scale(src, 2).Bounds(); got != image.Rect(0, 0, 20, 10) {
		t.Errorf("Scale(2) bounds = %v", got)
	}
}

func TestPreprocessFallsBack(t *testing.T) {
	src := gradient(8, 8)
	p := New(&fakeCapturer{}, failingPre{}, &fakeEngine{}, WithScale(2))
	if got := p.Preprocess(src); got != image.Image(src) {
		t.Error("failed strategy should return the original capture")
	}
}

func TestPipelineFlow(t *testing.T) {
	capt := &fakeCapturer{img: gradient(8, 8)}
	p := New(capt, GlobalThreshold{Cutoff: GlobalCutoff}, &fakeEngine{text: "OK"})

	rect := image.Rect(10, 10, 18, 18)
	img, err := p.Capture(rect)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if len(capt.rects) != 1 || capt.rects[0] != rect {
		t.Errorf("capturer saw %v, want [%v]", capt.rects, rect)
	}
	text, err := p.Recognize(context.Background(), p.Preprocess(img))
	if err != nil || text != "OK" {
		t.Errorf("Recognize = (%q, %v)", text, err)
	}
	if p.Strategy() != StrategyGlobal {
		t.Errorf("Strategy() = %q", p.Strategy())
	}
}

func TestEngineState(t *testing.T) {
	capt := &fakeCapturer{img: gradient(8, 8)}
	if got := New(capt, nil, &fakeEngine{}).EngineState(); got != "" {
		t.Errorf("unguarded EngineState() = %q, want empty", got)
	}

	failing := &fakeEngine{err: errors.New("tesseract missing")}
	b := resilience.New(resilience.Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	p := New(capt, nil, ocr.WithBreaker(failing, b))
	if got := p.EngineState(); got != "closed" {
		t.Errorf("EngineState() = %q, want closed", got)
	}
	_, _ = p.Recognize(context.Background(), gradient(8, 8))
	if got := p.EngineState(); got != "open" {
		t.Errorf("EngineState() after failure = %q, want open", got)
	}
}
