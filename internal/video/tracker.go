package video

import (
	"context"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/observability"
	"github.com/your-org/finishline/internal/pipeline"
	"github.com/your-org/finishline/internal/vision"
)

// Detector is the model half of the detection-and-tracking capability.
type Detector interface {
	Detect(imgData []float32, confThreshold, iouThreshold float32) ([]vision.Candidate, error)
	InputSize() (int, int)
}

// Tracker runs detection on a frame and associates the results with tracks.
type Tracker struct {
	detector Detector
	tracker  *vision.Tracker
}

func NewTracker(detector Detector, tracker *vision.Tracker) *Tracker {
	return &Tracker{detector: detector, tracker: tracker}
}

// Track implements pipeline.DetectionTracker. Errors wrap models.ErrDetection.
func (t *Tracker) Track(_ context.Context, f *Frame, p pipeline.TrackParams) ([]models.Detection, error) {
	if !p.Persist {
		t.tracker.Reset()
	}

	inW, inH := t.detector.InputSize()
	frameW, frameH := f.Size()

	blob := gocv.BlobFromImage(f.mat, 1.0/255.0, image.Pt(inW, inH), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: read blob: %v", models.ErrDetection, err)
	}

	start := time.Now()
	// Detect down to the tracker's second-pass floor; Update splits by p.Confidence.
	detectConf := p.Confidence
	if low := t.tracker.LowConfidence(); low > 0 && low < detectConf {
		detectConf = low
	}
	candidates, err := t.detector.Detect(data, detectConf, p.IoU)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDetection, err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	scaleX := float32(frameW) / float32(inW)
	scaleY := float32(frameH) / float32(inH)
	for i := range candidates {
		b := &candidates[i].BBox
		b[0] *= scaleX
		b[1] *= scaleY
		b[2] *= scaleX
		b[3] *= scaleY
	}

	objects := t.tracker.Update(candidates, p.Confidence)
	observability.ActiveTracks.Set(float64(t.tracker.TrackCount()))

	return vision.ToDetections(objects), nil
}
