package screen

import (
	"image"
	"image/draw"
	"log/slog"

	"github.com/kbinani/screenshot"
)

type displayBackend struct{}

func (displayBackend) displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, screenshot.GetDisplayBounds(i))
	}
	return bounds
}

func (displayBackend) grab(rect image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, err
	}
	// Rebase to a zero origin so downstream code can index Pix directly.
	if img.Bounds().Min != (image.Point{}) {
		rebased := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.Draw(rebased, rebased.Bounds(), img, img.Bounds().Min, draw.Src)
		img = rebased
	}
	return img, nil
}

// New creates a capturer for the active displays.
func New() Capturer {
	if screenshot.NumActiveDisplays() == 0 {
		slog.Warn("no active displays found; captures will fail until one appears")
	}
	return newBase(displayBackend{})
}
