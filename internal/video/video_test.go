package video

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/pipeline"
	"github.com/your-org/finishline/internal/vision"
)

func newTestFrame(t *testing.T, w, h int) *Frame {
	t.Helper()
	f := &Frame{mat: gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFrame_Drawing(t *testing.T) {
	f := newTestFrame(t, 640, 480)
	red := color.RGBA{R: 255, A: 255}

	w, h := f.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	require.NoError(t, f.Rectangle(image.Rect(10, 10, 100, 100), red, 2))
	require.NoError(t, f.Text("ID: 12", image.Pt(10, 5), 0.5, red, 2))
	require.NoError(t, f.Line(image.Pt(0, 384), image.Pt(640, 384), red, 3))
	require.NoError(t, f.Circle(image.Pt(55, 55), 5, red, -1))
}

func TestPreprocessor_Prepare(t *testing.T) {
	raw := newTestFrame(t, 1920, 1080)

	p := Preprocessor{Width: 640, Height: 640, Alpha: 1.2, Beta: 30}
	out, err := p.Prepare(raw)
	require.NoError(t, err)
	defer out.Close()

	w, h := out.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 640, h)
}

func TestPreprocessor_EmptyFrame(t *testing.T) {
	raw := &Frame{mat: gocv.NewMat()}
	defer raw.Close()

	_, err := Preprocessor{Width: 640, Height: 640, Alpha: 1, Beta: 0}.Prepare(raw)
	assert.Error(t, err)
}

func TestOpenSink_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "race_tracked.mp4")

	_, err := OpenSink(path, DefaultFourCC, 30, 640, 640)
	assert.ErrorIs(t, err, models.ErrSinkOpen)
}

func TestOpenSource_MissingFile(t *testing.T) {
	_, err := OpenSource(filepath.Join(t.TempDir(), "race.mp4"))
	assert.ErrorIs(t, err, models.ErrSourceOpen)
}

type stubDetector struct {
	calls      int
	candidates []vision.Candidate
}

func (d *stubDetector) Detect([]float32, float32, float32) ([]vision.Candidate, error) {
	d.calls++
	return d.candidates, nil
}

func (d *stubDetector) InputSize() (int, int) { return 640, 640 }

func TestTracker_FinishesFrameAfterCancel(t *testing.T) {
	det := &stubDetector{candidates: []vision.Candidate{
		{BBox: [4]float32{100, 100, 200, 200}, Confidence: 0.9},
	}}
	trk := NewTracker(det, vision.NewTracker(vision.TrackerOptions{LowConfidence: 0.1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	detections, err := trk.Track(ctx, newTestFrame(t, 640, 480), pipeline.TrackParams{Confidence: 0.5, IoU: 0.7, Persist: true})
	require.NoError(t, err)
	assert.Equal(t, 1, det.calls)
	require.Len(t, detections, 1)
	assert.Equal(t, [4]float32{100, 75, 200, 150}, detections[0].BBox)
	assert.True(t, detections[0].Tracked)
}
