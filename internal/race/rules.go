package race

import (
	"fmt"
	"math"

	"github.com/your-org/finishline/internal/config"
)

// TieBreak selects the winner when several detections qualify in the same frame.
type TieBreak string

const (
	// TieBreakTrackerOrder keeps the first qualifying detection in tracker output order.
	TieBreakTrackerOrder TieBreak = "tracker_order"
	// TieBreakLowestID picks the qualifying detection with the smallest track id.
	TieBreakLowestID TieBreak = "lowest_id"
	// TieBreakHighestConfidence picks the most confident qualifying detection.
	TieBreakHighestConfidence TieBreak = "highest_confidence"
)

// Rules are the per-run thresholds, computed once from the configuration
// and the source frame rate. Frame-skip does not affect them.
type Rules struct {
	FinishLinePosition   int // pixels from the top of the target frame
	FinishLineStartFrame int
	ValidWinnerFrame     int
	Excluded             map[int]struct{}
	TieBreak             TieBreak
}

// NewRules derives the thresholds from the race configuration and source fps.
func NewRules(cfg config.RaceConfig, sourceFPS float64) (Rules, error) {
	if sourceFPS <= 0 || math.IsNaN(sourceFPS) || math.IsInf(sourceFPS, 0) {
		return Rules{}, fmt.Errorf("invalid source fps %v", sourceFPS)
	}

	tb := TieBreak(cfg.TieBreak)
	switch tb {
	case "":
		tb = TieBreakTrackerOrder
	case TieBreakTrackerOrder, TieBreakLowestID, TieBreakHighestConfidence:
	default:
		return Rules{}, fmt.Errorf("unknown tie break %q", cfg.TieBreak)
	}

	excluded := make(map[int]struct{}, len(cfg.ExcludedIDs))
	for _, id := range cfg.ExcludedIDs {
		excluded[id] = struct{}{}
	}

	return Rules{
		FinishLinePosition:   int(math.Round(float64(cfg.TargetHeight) * cfg.FinishLineFraction)),
		FinishLineStartFrame: int(math.Round(cfg.FinishLineStartTime * sourceFPS)),
		ValidWinnerFrame:     int(math.Round(cfg.ValidWinnerTime * sourceFPS)),
		Excluded:             excluded,
		TieBreak:             tb,
	}, nil
}

// IsExcluded reports whether id may never be declared winner.
func (r Rules) IsExcluded(id int) bool {
	_, ok := r.Excluded[id]
	return ok
}
