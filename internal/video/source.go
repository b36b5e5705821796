package video

import (
	"fmt"
	"io"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/your-org/finishline/internal/models"
)

// Source reads frames from a video file in a single forward pass.
type Source struct {
	capture *gocv.VideoCapture
	meta    models.VideoMetadata
	done    bool
}

// OpenSource opens path and reads its metadata. Errors wrap models.ErrSourceOpen.
func OpenSource(path string) (*Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrSourceOpen, path, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: could not open video %s", models.ErrSourceOpen, path)
	}

	meta := models.VideoMetadata{
		Width:       int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:         capture.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(capture.Get(gocv.VideoCaptureFrameCount)),
	}
	if meta.FPS <= 0 {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: %s reports no frame rate", models.ErrSourceOpen, path)
	}

	return &Source{capture: capture, meta: meta}, nil
}

func (s *Source) Metadata() models.VideoMetadata {
	return s.meta
}

// Next returns the next frame, or io.EOF once the video is exhausted.
// The source releases the capture on exhaustion.
func (s *Source) Next() (*Frame, error) {
	if s.done {
		return nil, io.EOF
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		s.done = true
		if err := s.capture.Close(); err != nil {
			slog.Warn("close capture", "error", err)
		}
		return nil, io.EOF
	}
	return &Frame{mat: mat}, nil
}

// Close releases the capture. It is safe to call after exhaustion.
func (s *Source) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.capture.Close()
}
