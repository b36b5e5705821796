package video

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/your-org/finishline/internal/models"
)

// DefaultFourCC is the codec used for .mp4 output.
const DefaultFourCC = "mp4v"

// Sink writes frames at a fixed size and frame rate.
type Sink struct {
	writer *gocv.VideoWriter
	width  int
	height int
	frames int
	closed bool
}

// OpenSink opens path for writing. Errors wrap models.ErrSinkOpen.
func OpenSink(path, fourcc string, fps float64, width, height int) (*Sink, error) {
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	writer, err := gocv.VideoWriterFile(path, fourcc, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrSinkOpen, path, err)
	}
	if !writer.IsOpened() {
		_ = writer.Close()
		return nil, fmt.Errorf("%w: could not open writer %s", models.ErrSinkOpen, path)
	}
	return &Sink{writer: writer, width: width, height: height}, nil
}

// Write appends one frame. Frames must already have the sink's size.
func (s *Sink) Write(f *Frame) error {
	if s.closed {
		return fmt.Errorf("write to closed sink")
	}
	w, h := f.Size()
	if w != s.width || h != s.height {
		return fmt.Errorf("frame size %dx%d does not match output %dx%d", w, h, s.width, s.height)
	}
	if err := s.writer.Write(f.mat); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written.
func (s *Sink) Frames() int {
	return s.frames
}

func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
