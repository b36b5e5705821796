// Package render draws race overlays onto a frame.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/race"
)

// Canvas is a drawable frame. Coordinates are pixels in the target frame.
type Canvas interface {
	Size() (width, height int)
	Rectangle(r image.Rectangle, c color.RGBA, thickness int) error
	Text(text string, origin image.Point, scale float64, c color.RGBA, thickness int) error
	Line(from, to image.Point, c color.RGBA, thickness int) error
	// Circle draws a circle; a negative thickness fills it.
	Circle(center image.Point, radius int, c color.RGBA, thickness int) error
}

var (
	FinishColor    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	WinnerColor    = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	UntrackedColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

const (
	boxThickness    = 2
	labelScale      = 0.7
	labelOffset     = 10
	centerRadius    = 4
	finishThickness = 4
	bannerScale     = 1.0
	bannerThickness = 3
)

// Render annotates canvas with boxes, ids, center points, the finish line and the
// winner banner. Output depends only on its inputs.
func Render(c Canvas, detections []models.Detection, state race.State, rules race.Rules, colors *race.ColorTable) error {
	for _, d := range detections {
		if err := drawDetection(c, d, colors); err != nil {
			return err
		}
	}

	if state.FinishLineVisible(rules) {
		width, _ := c.Size()
		y := rules.FinishLinePosition
		if err := c.Line(image.Pt(0, y), image.Pt(width, y), FinishColor, finishThickness); err != nil {
			return fmt.Errorf("draw finish line: %w", err)
		}
		if err := c.Text("FINISH", image.Pt(10, y-labelOffset), bannerScale, FinishColor, bannerThickness); err != nil {
			return fmt.Errorf("draw finish label: %w", err)
		}
	}

	if id, ok := state.Winner(); ok {
		banner := fmt.Sprintf("Winner: ID#%d", id)
		if err := c.Text(banner, image.Pt(10, 60), bannerScale, WinnerColor, bannerThickness); err != nil {
			return fmt.Errorf("draw winner banner: %w", err)
		}
	}

	return nil
}

func drawDetection(c Canvas, d models.Detection, colors *race.ColorTable) error {
	box := image.Rect(int(d.BBox[0]), int(d.BBox[1]), int(d.BBox[2]), int(d.BBox[3]))

	id, tracked := d.ID()
	if !tracked {
		if err := c.Rectangle(box, UntrackedColor, 1); err != nil {
			return fmt.Errorf("draw untracked box: %w", err)
		}
		return nil
	}

	col := colors.Color(id)
	if err := c.Rectangle(box, col, boxThickness); err != nil {
		return fmt.Errorf("draw box %d: %w", id, err)
	}
	label := fmt.Sprintf("ID#%d", id)
	if err := c.Text(label, image.Pt(box.Min.X, box.Min.Y-labelOffset), labelScale, col, boxThickness); err != nil {
		return fmt.Errorf("draw label %d: %w", id, err)
	}
	center := image.Pt((box.Min.X+box.Max.X)/2, (box.Min.Y+box.Max.Y)/2)
	if err := c.Circle(center, centerRadius, col, -1); err != nil {
		return fmt.Errorf("draw center %d: %w", id, err)
	}
	return nil
}
