// Package video adapts OpenCV (gocv) capture, drawing and writing to the pipeline contracts.
package video

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame is a gocv Mat owned by the pipeline for one iteration.
type Frame struct {
	mat gocv.Mat
}

// Mat exposes the underlying image. It stays owned by the Frame.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Size() (int, int) {
	return f.mat.Cols(), f.mat.Rows()
}

func (f *Frame) Rectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	if err := gocv.Rectangle(&f.mat, r, c, thickness); err != nil {
		return fmt.Errorf("draw rectangle: %w", err)
	}
	return nil
}

func (f *Frame) Text(text string, origin image.Point, scale float64, c color.RGBA, thickness int) error {
	if err := gocv.PutText(&f.mat, text, origin, gocv.FontHersheySimplex, scale, c, thickness); err != nil {
		return fmt.Errorf("draw text: %w", err)
	}
	return nil
}

func (f *Frame) Line(from, to image.Point, c color.RGBA, thickness int) error {
	if err := gocv.Line(&f.mat, from, to, c, thickness); err != nil {
		return fmt.Errorf("draw line: %w", err)
	}
	return nil
}

func (f *Frame) Circle(center image.Point, radius int, c color.RGBA, thickness int) error {
	if err := gocv.Circle(&f.mat, center, radius, c, thickness); err != nil {
		return fmt.Errorf("draw circle: %w", err)
	}
	return nil
}

func (f *Frame) Close() error {
	return f.mat.Close()
}
