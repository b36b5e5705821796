package models

import (
	"time"

	"github.com/google/uuid"
)

// RaceResult is the final outcome of one run.
type RaceResult struct {
	RunID           uuid.UUID     `json:"run_id"`
	InputPath       string        `json:"input_path"`
	OutputPath      string        `json:"output_path"`
	Video           VideoMetadata `json:"video"`
	WinnerFound     bool          `json:"winner_found"`
	WinnerID        *int          `json:"winner_id,omitempty"`
	DecisionFrame   int           `json:"decision_frame,omitempty"`
	FramesRead      int           `json:"frames_read"`
	FramesProcessed int           `json:"frames_processed"`
	Cancelled       bool          `json:"cancelled"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	ArtifactKey     string        `json:"artifact_key,omitempty"`
}
