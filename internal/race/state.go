package race

import "github.com/your-org/finishline/internal/models"

// State is the mutable race state threaded through the per-frame loop.
// It moves from active to decided exactly once.
type State struct {
	FrameCount    int
	WinnerFound   bool
	WinnerID      int
	DecisionFrame int
}

// Winner returns the winner id when one has been declared.
func (s State) Winner() (int, bool) {
	return s.WinnerID, s.WinnerFound
}

// FinishLineVisible reports whether the finish line overlay belongs on the current frame.
func (s State) FinishLineVisible(r Rules) bool {
	return s.FrameCount >= r.FinishLineStartFrame || s.WinnerFound
}

// Step evaluates the detections of the current frame and returns the updated state.
// A decided state is returned unchanged.
func Step(s State, r Rules, detections []models.Detection) State {
	if s.WinnerFound || s.FrameCount < r.ValidWinnerFrame {
		return s
	}

	best := -1
	for i, d := range detections {
		if !qualifies(d, r) {
			continue
		}
		if r.TieBreak == TieBreakTrackerOrder || r.TieBreak == "" {
			best = i
			break
		}
		if best < 0 || better(d, detections[best], r.TieBreak) {
			best = i
		}
	}
	if best < 0 {
		return s
	}

	s.WinnerFound = true
	s.WinnerID = detections[best].TrackID
	s.DecisionFrame = s.FrameCount
	return s
}

func qualifies(d models.Detection, r Rules) bool {
	id, ok := d.ID()
	if !ok || r.IsExcluded(id) {
		return false
	}
	_, cy := d.Center()
	return centerRow(cy) >= r.FinishLinePosition
}

// centerRow truncates the center to the pixel row it is drawn on.
func centerRow(cy float32) int {
	return int(cy)
}

func better(a, b models.Detection, tb TieBreak) bool {
	switch tb {
	case TieBreakLowestID:
		return a.TrackID < b.TrackID
	case TieBreakHighestConfidence:
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.TrackID < b.TrackID
	}
	return false
}
