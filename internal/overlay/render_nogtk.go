//go:build nogtk

package overlay

import (
	"errors"
	"image"
	"time"
)

type headlessRenderer struct{}

// DefaultRenderer returns a renderer that fails: this build has no GUI toolkit.
func DefaultRenderer() Renderer { return headlessRenderer{} }

func (headlessRenderer) Run(image.Rectangle, time.Duration, func() bool) error {
	return errors.New("overlay rendering unavailable (built with nogtk)")
}
