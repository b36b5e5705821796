package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Preview shows annotated frames in a desktop window; pressing q quits.
type Preview struct {
	window *gocv.Window
}

func NewPreview(title string) *Preview {
	return &Preview{window: gocv.NewWindow(title)}
}

func (p *Preview) Show(f *Frame) (bool, error) {
	if err := p.window.IMShow(f.mat); err != nil {
		return false, fmt.Errorf("show frame: %w", err)
	}
	key := p.window.WaitKey(1)
	return key&0xFF == 'q', nil
}

func (p *Preview) Close() error {
	return p.window.Close()
}
