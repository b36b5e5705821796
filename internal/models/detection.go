package models

// Detection is one tracked object in a processed frame.
type Detection struct {
	BBox       [4]float32 // x1, y1, x2, y2 (pixel coordinates in the target frame)
	Confidence float32
	TrackID    int
	Tracked    bool // false when the tracker has not (yet) assigned an id
	ClassID    int
}

// ID returns the track id and whether one is assigned.
func (d Detection) ID() (int, bool) {
	return d.TrackID, d.Tracked
}

// Center returns the midpoint of the bounding box.
func (d Detection) Center() (float32, float32) {
	return (d.BBox[0] + d.BBox[2]) / 2, (d.BBox[1] + d.BBox[3]) / 2
}

// VideoMetadata describes an opened source video.
type VideoMetadata struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	TotalFrames int     `json:"total_frames"`
}
