package models

import "errors"

var (
	// ErrConfiguration reports a missing input/model path or an invalid option.
	ErrConfiguration = errors.New("configuration error")
	// ErrSourceOpen reports that the input video could not be opened.
	ErrSourceOpen = errors.New("source open error")
	// ErrSinkOpen reports that the output video could not be opened.
	ErrSinkOpen = errors.New("sink open error")
	// ErrDetection reports a failed detection-and-tracking call.
	ErrDetection = errors.New("detection failure")
)
