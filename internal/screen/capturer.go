// Package screen grabs pixels from a rectangle of the desktop.
package screen

import (
	"image"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
)

// Capturer captures a screen rectangle.
type Capturer interface {
	Capture(rect image.Rectangle) (*image.RGBA, error)
	Close()
}

// backend implements the platform-specific raw grab.
type backend interface {
	displays() []image.Rectangle
	grab(rect image.Rectangle) (*image.RGBA, error)
}

// baseCapturer validates the rectangle against the active displays before grabbing.
type baseCapturer struct {
	backend
}

func newBase(b backend) *baseCapturer {
	return &baseCapturer{backend: b}
}

// Capture returns exactly rect. The rectangle must be non-empty and lie inside
// the union of the active display bounds.
func (c *baseCapturer) Capture(rect image.Rectangle) (*image.RGBA, error) {
	if rect.Empty() {
		return nil, apperrors.Newf(apperrors.CodeCapture, "empty capture rectangle %v", rect)
	}
	if !covered(rect, c.displays()) {
		return nil, apperrors.Newf(apperrors.CodeCapture, "rectangle %v is outside every active display", rect)
	}
	img, err := c.grab(rect)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeCapture, "grab %v", rect)
	}
	if img.Bounds().Dx() != rect.Dx() || img.Bounds().Dy() != rect.Dy() {
		return nil, apperrors.Newf(apperrors.CodeCapture, "grab %v returned %v", rect, img.Bounds())
	}
	return img, nil
}

func (c *baseCapturer) Close() {}

// covered reports whether every row of rect is inside the union of displays.
// Displays are few, so a per-row sweep over the x spans is cheap enough.
func covered(rect image.Rectangle, displays []image.Rectangle) bool {
	if len(displays) == 0 {
		return false
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		x := rect.Min.X
		for x < rect.Max.X {
			advanced := false
			for _, d := range displays {
				if y >= d.Min.Y && y < d.Max.Y && x >= d.Min.X && x < d.Max.X {
					x = d.Max.X
					advanced = true
				}
			}
			if !advanced {
				return false
			}
		}
	}
	return true
}
