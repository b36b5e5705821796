package video

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Preprocessor resizes frames to the target size and applies a fixed
// contrast (alpha) and brightness (beta) adjustment.
type Preprocessor struct {
	Width  int
	Height int
	Alpha  float64
	Beta   float64
}

func (p Preprocessor) Prepare(raw *Frame) (*Frame, error) {
	resized := gocv.NewMat()
	defer resized.Close()

	if err := gocv.Resize(raw.mat, &resized, image.Pt(p.Width, p.Height), 0, 0, gocv.InterpolationLinear); err != nil {
		return nil, fmt.Errorf("resize to %dx%d: %w", p.Width, p.Height, err)
	}
	if resized.Empty() {
		return nil, fmt.Errorf("resize to %dx%d failed", p.Width, p.Height)
	}

	adjusted := gocv.NewMat()
	if err := gocv.ConvertScaleAbs(resized, &adjusted, p.Alpha, p.Beta); err != nil {
		_ = adjusted.Close()
		return nil, fmt.Errorf("adjust brightness: %w", err)
	}
	if adjusted.Empty() {
		_ = adjusted.Close()
		return nil, fmt.Errorf("brightness adjustment failed")
	}
	return &Frame{mat: adjusted}, nil
}
