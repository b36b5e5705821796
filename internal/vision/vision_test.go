package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumAnchors(t *testing.T) {
	assert.Equal(t, 8400, NumAnchors(640, 640))
	assert.Equal(t, 2100, NumAnchors(320, 320))
}

// yoloOutput builds a channel-major [4+nc, anchors] tensor.
func yoloOutput(numClasses, anchors int, boxes map[int][]float32) []float32 {
	out := make([]float32, (4+numClasses)*anchors)
	for a, v := range boxes {
		for row, val := range v {
			out[row*anchors+a] = val
		}
	}
	return out
}

func TestDecodeYOLO(t *testing.T) {
	out := yoloOutput(2, 4, map[int][]float32{
		0: {100, 200, 40, 80, 0.9, 0.1},  // class 0
		1: {300, 300, 20, 20, 0.2, 0.3},  // below threshold
		3: {50, 60, 10, 20, 0.05, 0.75}, // class 1
	})

	got := decodeYOLO(out, 2, 4, 0.5, nil)
	require.Len(t, got, 2)

	assert.Equal(t, [4]float32{80, 160, 120, 240}, got[0].BBox)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-6)
	assert.Equal(t, 0, got[0].ClassID)

	assert.Equal(t, [4]float32{45, 50, 55, 70}, got[1].BBox)
	assert.Equal(t, 1, got[1].ClassID)
}

func TestDecodeYOLO_ClassFilter(t *testing.T) {
	out := yoloOutput(2, 2, map[int][]float32{
		0: {10, 10, 4, 4, 0.9, 0},
		1: {20, 20, 4, 4, 0, 0.9},
	})

	got := decodeYOLO(out, 2, 2, 0.5, classSet([]int{1}))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ClassID)
}

func TestDecodeYOLO_ShortOutput(t *testing.T) {
	assert.Empty(t, decodeYOLO(make([]float32, 3), 1, 4, 0.5, nil))
}

func TestIoU(t *testing.T) {
	a := [4]float32{0, 0, 10, 10}

	assert.InDelta(t, 1.0, iou(a, a), 1e-6)
	assert.InDelta(t, 0.0, iou(a, [4]float32{20, 20, 30, 30}), 1e-6)
	assert.InDelta(t, 25.0/175.0, iou(a, [4]float32{5, 5, 15, 15}), 1e-6)
	assert.Zero(t, iou([4]float32{}, [4]float32{}))
}

func TestNMS(t *testing.T) {
	candidates := []Candidate{
		{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.6},
		{BBox: [4]float32{1, 1, 11, 11}, Confidence: 0.9},
		{BBox: [4]float32{1, 1, 11, 11}, Confidence: 0.8, ClassID: 1},
		{BBox: [4]float32{50, 50, 60, 60}, Confidence: 0.7},
	}

	got := nms(candidates, 0.5)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-6)
	assert.InDelta(t, 0.8, got[1].Confidence, 1e-6)
	assert.InDelta(t, 0.7, got[2].Confidence, 1e-6)
}

func box(x, y float32) [4]float32 {
	return [4]float32{x, y, x + 40, y + 80}
}

func TestTracker_KeepsIdentityAcrossFrames(t *testing.T) {
	tr := NewTracker(TrackerOptions{MaxAge: 5, MinHits: 1, MatchIoU: 0.3, LowConfidence: 0.1})

	first := tr.Update([]Candidate{
		{BBox: box(100, 100), Confidence: 0.9},
		{BBox: box(400, 100), Confidence: 0.9},
	}, 0.5)
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].ID)
	assert.Equal(t, 2, first[1].ID)
	assert.True(t, first[0].Confirmed)

	// Move both down and present them in reverse order.
	second := tr.Update([]Candidate{
		{BBox: box(402, 110), Confidence: 0.9},
		{BBox: box(102, 110), Confidence: 0.9},
	}, 0.5)
	require.Len(t, second, 2)
	assert.Equal(t, 1, second[0].ID)
	assert.Equal(t, box(102, 110), second[0].BBox)
	assert.Equal(t, 2, second[1].ID)
	assert.Equal(t, box(402, 110), second[1].BBox)
	assert.Equal(t, 2, tr.TrackCount())
}

func TestTracker_MinHits(t *testing.T) {
	tr := NewTracker(TrackerOptions{MaxAge: 5, MinHits: 3, MatchIoU: 0.3, LowConfidence: 0.1})

	for i := 0; i < 2; i++ {
		out := tr.Update([]Candidate{{BBox: box(100, float32(100+i)), Confidence: 0.9}}, 0.5)
		require.Len(t, out, 1)
		assert.False(t, out[0].Confirmed)
	}
	out := tr.Update([]Candidate{{BBox: box(100, 102), Confidence: 0.9}}, 0.5)
	require.Len(t, out, 1)
	assert.True(t, out[0].Confirmed)
	assert.Equal(t, 1, out[0].ID)
}

func TestTracker_LowConfidenceExtendsButNeverStarts(t *testing.T) {
	tr := NewTracker(TrackerOptions{MaxAge: 5, MinHits: 1, MatchIoU: 0.3, LowConfidence: 0.1})

	out := tr.Update([]Candidate{{BBox: box(100, 100), Confidence: 0.3}}, 0.5)
	assert.Empty(t, out)
	assert.Zero(t, tr.TrackCount())

	tr.Update([]Candidate{{BBox: box(100, 100), Confidence: 0.9}}, 0.5)
	out = tr.Update([]Candidate{{BBox: box(101, 104), Confidence: 0.3}}, 0.5)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)
	assert.InDelta(t, 0.3, out[0].Confidence, 1e-6)
}

func TestTracker_RetiresLostTracks(t *testing.T) {
	tr := NewTracker(TrackerOptions{MaxAge: 2, MinHits: 1, MatchIoU: 0.3, LowConfidence: 0.1})

	tr.Update([]Candidate{{BBox: box(100, 100), Confidence: 0.9}}, 0.5)
	tr.Update(nil, 0.5)
	tr.Update(nil, 0.5)
	assert.Equal(t, 1, tr.TrackCount())

	tr.Update(nil, 0.5)
	assert.Zero(t, tr.TrackCount())

	out := tr.Update([]Candidate{{BBox: box(100, 100), Confidence: 0.9}}, 0.5)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].ID)
}

func TestTracker_RecoversAfterShortGap(t *testing.T) {
	tr := NewTracker(TrackerOptions{MaxAge: 5, MinHits: 1, MatchIoU: 0.3, LowConfidence: 0.1})

	tr.Update([]Candidate{{BBox: box(100, 100), Confidence: 0.9}}, 0.5)
	tr.Update([]Candidate{{BBox: box(100, 110), Confidence: 0.9}}, 0.5)
	tr.Update(nil, 0.5)

	out := tr.Update([]Candidate{{BBox: box(100, 130), Confidence: 0.9}}, 0.5)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(TrackerOptions{})
	tr.Update([]Candidate{{BBox: box(0, 0), Confidence: 0.9}}, 0.5)
	tr.Reset()

	assert.Zero(t, tr.TrackCount())
	out := tr.Update([]Candidate{{BBox: box(300, 300), Confidence: 0.9}}, 0.5)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)
}

func TestToDetections(t *testing.T) {
	got := ToDetections([]TrackedObject{
		{BBox: box(1, 2), Confidence: 0.9, ID: 4, Confirmed: true},
		{BBox: box(3, 4), Confidence: 0.6, ID: 5},
	})
	require.Len(t, got, 2)

	id, ok := got[0].ID()
	assert.True(t, ok)
	assert.Equal(t, 4, id)
	assert.Equal(t, box(1, 2), got[0].BBox)

	_, ok = got[1].ID()
	assert.False(t, ok)
	assert.Zero(t, got[1].TrackID)
}
