//go:build !nocv

package pipeline

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// AdaptiveThreshold binarizes against a Gaussian-weighted local mean, so
// text stays legible under uneven background brightness.
type AdaptiveThreshold struct {
	BlockSize int
	C         float32
}

// Name implements Preprocessor.
func (AdaptiveThreshold) Name() string { return StrategyAdaptive }

// Apply implements Preprocessor.
func (a AdaptiveThreshold) Apply(img image.Image) (image.Image, error) {
	rgba := toRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image")
	}

	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return nil, fmt.Errorf("wrap pixels: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.AdaptiveThreshold(gray, &bin, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, a.BlockSize, a.C)
	if bin.Empty() {
		return nil, fmt.Errorf("adaptive threshold produced no output")
	}

	out := image.NewGray(image.Rect(0, 0, bin.Cols(), bin.Rows()))
	copy(out.Pix, bin.ToBytes())
	return out, nil
}
