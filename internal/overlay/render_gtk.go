//go:build !nogtk

package overlay

import (
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/gotk3/gotk3/cairo"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
)

// GTKRenderer draws a red outline in a transparent, undecorated popup kept
// above other windows.
type GTKRenderer struct {
	Width   float64
	R, G, B float64
}

// DefaultRenderer returns the platform renderer.
func DefaultRenderer() Renderer {
	return GTKRenderer{Width: BorderWidth, R: 1}
}

// Run implements Renderer. GTK must own the calling OS thread.
func (g GTKRenderer) Run(rect image.Rectangle, poll time.Duration, keep func() bool) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := gtk.InitCheck(nil); err != nil {
		return fmt.Errorf("gtk init: %w", err)
	}

	win, err := gtk.WindowNew(gtk.WINDOW_POPUP)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	win.SetDecorated(false)
	win.SetKeepAbove(true)
	win.SetSkipTaskbarHint(true)
	win.SetSkipPagerHint(true)
	win.SetAcceptFocus(false)
	win.SetAppPaintable(true)

	if screen, err := win.GetScreen(); err == nil {
		if visual, err := screen.GetRGBAVisual(); err == nil && visual != nil {
			win.SetVisual(visual)
		}
	}

	win.Move(rect.Min.X, rect.Min.Y)
	win.SetDefaultSize(rect.Dx(), rect.Dy())
	win.Resize(rect.Dx(), rect.Dy())

	w, h := float64(rect.Dx()), float64(rect.Dy())
	half := g.Width / 2
	win.Connect("draw", func(_ *gtk.Window, cr *cairo.Context) bool {
		cr.SetOperator(cairo.OPERATOR_SOURCE)
		cr.SetSourceRGBA(0, 0, 0, 0)
		cr.Paint()
		cr.SetOperator(cairo.OPERATOR_OVER)
		cr.SetSourceRGBA(g.R, g.G, g.B, 1)
		cr.SetLineWidth(g.Width)
		cr.Rectangle(half, half, w-g.Width, h-g.Width)
		cr.Stroke()
		return true
	})
	win.Connect("destroy", gtk.MainQuit)

	glib.TimeoutAdd(uint(poll.Milliseconds()), func() bool {
		if keep() {
			return true
		}
		gtk.MainQuit()
		return false
	})

	win.ShowAll()
	gtk.Main()
	return nil
}
