package overlay

import (
	"context"
	"image"
	"log/slog"
	"os"
	"time"
)

// Renderer draws the outline until keep reports false. It must call keep
// every poll interval from its own event loop.
type Renderer interface {
	Run(rect image.Rectangle, poll time.Duration, keep func() bool) error
}

// RunChild is the overlay process body. It exits when the flag is cleared,
// the flag file disappears, or ctx ends.
func RunChild(ctx context.Context, rect image.Rectangle, view FlagView, r Renderer) error {
	log := slog.With("component", "overlay", "pid", os.Getpid())
	if !view.Active() {
		log.Info("overlay flag already cleared, exiting")
		return nil
	}

	keep := func() bool {
		return ctx.Err() == nil && view.Active()
	}

	log.Info("overlay child running", "rect", rect.String())
	if err := r.Run(rect, PollInterval, keep); err != nil {
		log.Error("overlay renderer failed", "error", err)
		return err
	}
	log.Info("overlay child exiting")
	return nil
}
