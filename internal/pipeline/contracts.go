package pipeline

import (
	"context"

	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/render"
)

// Frame is a drawable raster owned by the Runner for one iteration.
type Frame interface {
	render.Canvas
	Close() error
}

// FrameSource yields frames in order. Next returns io.EOF after the last frame.
type FrameSource[F Frame] interface {
	Next() (F, error)
	Close() error
}

// Preprocessor turns a raw source frame into a target-size frame ready for detection.
// The returned frame is independent of raw.
type Preprocessor[F Frame] interface {
	Prepare(raw F) (F, error)
}

// TrackParams are passed through to the detection-and-tracking capability.
type TrackParams struct {
	Confidence float32
	IoU        float32
	Persist    bool // keep identities across calls
}

// DetectionTracker returns the tracked detections of one frame. Order is unspecified.
type DetectionTracker[F Frame] interface {
	Track(ctx context.Context, frame F, params TrackParams) ([]models.Detection, error)
}

// VideoSink persists annotated frames.
type VideoSink[F Frame] interface {
	Write(frame F) error
	Close() error
}

// Preview shows annotated frames. Show reports true when the user asked to quit.
type Preview[F Frame] interface {
	Show(frame F) (quit bool, err error)
	Close() error
}
