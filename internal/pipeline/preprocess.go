package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Preprocessor binarizes a capture to improve recognition contrast.
type Preprocessor interface {
	Name() string
	Apply(img image.Image) (image.Image, error)
}

// NewPreprocessor returns the strategy registered under name.
func NewPreprocessor(name string) (Preprocessor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyAdaptive:
		return AdaptiveThreshold{BlockSize: AdaptiveBlockSize, C: AdaptiveC}, nil
	case StrategyGlobal:
		return GlobalThreshold{Cutoff: GlobalCutoff}, nil
	default:
		return nil, fmt.Errorf("unknown preprocess strategy %q", name)
	}
}

// GlobalThreshold converts to grayscale and maps every pixel above Cutoff to white.
type GlobalThreshold struct {
	Cutoff uint8
}

// Name implements Preprocessor.
func (GlobalThreshold) Name() string { return StrategyGlobal }

// Apply implements Preprocessor.
func (g GlobalThreshold) Apply(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := out.Pix[(y-b.Min.Y)*out.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			l := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			if l > g.Cutoff {
				row[x-b.Min.X] = 0xff
			} else {
				row[x-b.Min.X] = 0
			}
		}
	}
	return out, nil
}

// Scale resizes img by factor using Catmull-Rom interpolation. Factors at or
// below 1 return img unchanged.
func Scale(img image.Image, factor float64) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// toRGBA returns img as a zero-origin *image.RGBA, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
