package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// Event types published by Progress.
const (
	EventProgress = "progress"
	EventWinner   = "winner"
	EventFinished = "finished"
)

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	RunID           uuid.UUID `json:"run_id"`
	FrameCount      int       `json:"frame_count"`
	FramesProcessed int       `json:"frames_processed"`
	TotalFrames     int       `json:"total_frames"`
	WinnerFound     bool      `json:"winner_found"`
	WinnerID        int       `json:"winner_id,omitempty"`
	DecisionFrame   int       `json:"decision_frame,omitempty"`
	Finished        bool      `json:"finished"`
	Cancelled       bool      `json:"cancelled"`
}

type Event struct {
	Type     string   `json:"type"`
	Snapshot Snapshot `json:"snapshot"`
}

// Progress holds the latest Snapshot for readers outside the frame loop.
type Progress struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Event)
}

func NewProgress(runID uuid.UUID, totalFrames int) *Progress {
	return &Progress{snap: Snapshot{RunID: runID, TotalFrames: totalFrames}}
}

// Subscribe registers fn to receive every published event. fn must not block.
func (p *Progress) Subscribe(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Progress) set(snap Snapshot, eventType string) {
	p.mu.Lock()
	snap.RunID = p.snap.RunID
	snap.TotalFrames = p.snap.TotalFrames
	p.snap = snap
	listeners := append([]func(Event)(nil), p.listeners...)
	p.mu.Unlock()

	if eventType == "" {
		return
	}
	for _, fn := range listeners {
		fn(Event{Type: eventType, Snapshot: snap})
	}
}
