package vision

import (
	"sort"
	"sync"

	"github.com/your-org/finishline/internal/models"
)

// Track represents a tracked participant across frames.
type Track struct {
	ID              int
	BBox            [4]float32 // last observed box
	Predicted       [4]float32 // box predicted for the current frame
	Velocity        [4]float32 // per-frame box motion
	Confidence      float32
	ClassID         int
	Age             int // frames since creation
	Hits            int // number of detections matched
	TimeSinceUpdate int // frames since last detection match
}

// TrackedObject is one tracker output for the current frame.
type TrackedObject struct {
	BBox       [4]float32
	Confidence float32
	ClassID    int
	ID         int
	Confirmed  bool // ID is only meaningful when confirmed
}

// TrackerOptions configures association and track lifetime.
type TrackerOptions struct {
	MaxAge        int     // max frames without detection before a track is removed
	MinHits       int     // hits before a track id is exposed
	MatchIoU      float32 // min IoU for a detection to continue a track
	LowConfidence float32 // floor for the second association pass
}

// Tracker implements a ByteTrack-style two-pass IoU tracker with integer ids.
type Tracker struct {
	mu     sync.Mutex
	tracks []*Track // ordered by id
	nextID int
	opts   TrackerOptions
}

// NewTracker creates a tracker. Ids start at 1.
func NewTracker(opts TrackerOptions) *Tracker {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30
	}
	if opts.MinHits <= 0 {
		opts.MinHits = 1
	}
	if opts.MatchIoU <= 0 {
		opts.MatchIoU = 0.3
	}
	return &Tracker{opts: opts}
}

// Update associates candidates with existing tracks. Candidates scoring at least
// highConf are matched first and may start new tracks; candidates between
// LowConfidence and highConf only extend tracks left unmatched by the first pass.
// Output lists continued tracks in id order followed by new tracks.
func (t *Tracker) Update(candidates []Candidate, highConf float32) []TrackedObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tr := range t.tracks {
		tr.Age++
		tr.TimeSinceUpdate++
		gap := float32(tr.TimeSinceUpdate)
		for i := range tr.Predicted {
			tr.Predicted[i] = tr.BBox[i] + tr.Velocity[i]*gap
		}
	}

	var high, low []int
	for i, c := range candidates {
		switch {
		case c.Confidence >= highConf:
			high = append(high, i)
		case c.Confidence >= t.opts.LowConfidence:
			low = append(low, i)
		}
	}

	matchedTracks := make(map[int]bool)
	updated := make(map[*Track]bool)

	firstPass := t.associate(candidates, high, matchedTracks)
	for di, tr := range firstPass {
		t.apply(tr, candidates[di])
		updated[tr] = true
	}
	secondPass := t.associate(candidates, low, matchedTracks)
	for di, tr := range secondPass {
		t.apply(tr, candidates[di])
		updated[tr] = true
	}

	out := make([]TrackedObject, 0, len(candidates))
	for _, tr := range t.tracks {
		if updated[tr] {
			out = append(out, t.object(tr))
		}
	}

	for _, di := range high {
		if _, ok := firstPass[di]; ok {
			continue
		}
		c := candidates[di]
		t.nextID++
		tr := &Track{
			ID:         t.nextID,
			BBox:       c.BBox,
			Predicted:  c.BBox,
			Confidence: c.Confidence,
			ClassID:    c.ClassID,
			Hits:       1,
		}
		t.tracks = append(t.tracks, tr)
		out = append(out, t.object(tr))
	}

	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if tr.TimeSinceUpdate <= t.opts.MaxAge {
			kept = append(kept, tr)
		}
	}
	t.tracks = kept

	return out
}

// associate greedily pairs candidates with unmatched tracks by descending IoU.
// It returns candidate index -> track and marks matched tracks.
func (t *Tracker) associate(candidates []Candidate, idx []int, matchedTracks map[int]bool) map[int]*Track {
	type pair struct {
		ti, di int
		iou    float32
	}

	var pairs []pair
	for ti, tr := range t.tracks {
		if matchedTracks[tr.ID] {
			continue
		}
		for _, di := range idx {
			v := iou(candidates[di].BBox, tr.Predicted)
			if v >= t.opts.MatchIoU {
				pairs = append(pairs, pair{ti: ti, di: di, iou: v})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].iou > pairs[j].iou
	})

	result := make(map[int]*Track)
	for _, p := range pairs {
		tr := t.tracks[p.ti]
		if matchedTracks[tr.ID] {
			continue
		}
		if _, taken := result[p.di]; taken {
			continue
		}
		matchedTracks[tr.ID] = true
		result[p.di] = tr
	}
	return result
}

func (t *Tracker) apply(tr *Track, c Candidate) {
	gap := float32(tr.TimeSinceUpdate)
	if gap < 1 {
		gap = 1
	}
	for i := range tr.Velocity {
		observed := (c.BBox[i] - tr.BBox[i]) / gap
		tr.Velocity[i] = 0.5*tr.Velocity[i] + 0.5*observed
	}
	tr.BBox = c.BBox
	tr.Predicted = c.BBox
	tr.Confidence = c.Confidence
	tr.ClassID = c.ClassID
	tr.Hits++
	tr.TimeSinceUpdate = 0
}

func (t *Tracker) object(tr *Track) TrackedObject {
	return TrackedObject{
		BBox:       tr.BBox,
		Confidence: tr.Confidence,
		ClassID:    tr.ClassID,
		ID:         tr.ID,
		Confirmed:  tr.Hits >= t.opts.MinHits,
	}
}

// LowConfidence returns the second-pass association floor.
func (t *Tracker) LowConfidence() float32 {
	return t.opts.LowConfidence
}

// TrackCount returns the number of active tracks.
func (t *Tracker) TrackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// Reset drops all tracks and restarts ids at 1.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = nil
	t.nextID = 0
}

// ToDetections converts tracker output; unconfirmed tracks carry no id.
func ToDetections(objects []TrackedObject) []models.Detection {
	detections := make([]models.Detection, 0, len(objects))
	for _, o := range objects {
		d := models.Detection{
			BBox:       o.BBox,
			Confidence: o.Confidence,
			ClassID:    o.ClassID,
		}
		if o.Confirmed {
			d.TrackID = o.ID
			d.Tracked = true
		}
		detections = append(detections, d)
	}
	return detections
}
