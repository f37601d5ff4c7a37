//go:build nocv

package pipeline

import (
	"errors"
	"image"
)

// AdaptiveThreshold is unavailable in builds without OpenCV; Apply always
// fails, so the pipeline falls back to the raw capture.
type AdaptiveThreshold struct {
	BlockSize int
	C         float32
}

// Name implements Preprocessor.
func (AdaptiveThreshold) Name() string { return StrategyAdaptive }

// Apply implements Preprocessor.
func (AdaptiveThreshold) Apply(image.Image) (image.Image, error) {
	return nil, errors.New("built without opencv (nocv tag)")
}
