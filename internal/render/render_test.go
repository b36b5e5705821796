package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/finishline/internal/config"
	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/race"
)

// recorder captures draw calls as readable strings.
type recorder struct {
	w, h   int
	ops    []string
	failOn string
}

func (r *recorder) Size() (int, int) { return r.w, r.h }

func (r *recorder) record(op string) error {
	if r.failOn != "" && strings.HasPrefix(op, r.failOn) {
		return errors.New("canvas failure")
	}
	r.ops = append(r.ops, op)
	return nil
}

func (r *recorder) Rectangle(rect image.Rectangle, c color.RGBA, thickness int) error {
	return r.record(fmt.Sprintf("rect %v %v %d", rect, c, thickness))
}

func (r *recorder) Text(text string, at image.Point, scale float64, c color.RGBA, thickness int) error {
	return r.record(fmt.Sprintf("text %q %v %v", text, at, c))
}

func (r *recorder) Line(from, to image.Point, c color.RGBA, thickness int) error {
	return r.record(fmt.Sprintf("line %v %v %v %d", from, to, c, thickness))
}

func (r *recorder) Circle(center image.Point, radius int, c color.RGBA, thickness int) error {
	return r.record(fmt.Sprintf("circle %v %d %v", center, radius, c))
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, op := range r.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func testRules(t *testing.T) race.Rules {
	t.Helper()
	rules, err := race.NewRules(config.RaceConfig{
		TargetWidth:         640,
		TargetHeight:        640,
		FinishLineFraction:  0.6,
		FinishLineStartTime: 24,
		ValidWinnerTime:     25,
		ExcludedIDs:         []int{97},
	}, 30)
	require.NoError(t, err)
	return rules
}

func TestRender_TrackedDetection(t *testing.T) {
	colors := race.NewColorTable(1)
	c := &recorder{w: 640, h: 640}
	d := models.Detection{BBox: [4]float32{100, 200, 140, 300}, TrackID: 112, Tracked: true}

	require.NoError(t, Render(c, []models.Detection{d}, race.State{FrameCount: 10}, testRules(t), colors))

	col := colors.Color(12)
	assert.Equal(t, []string{
		fmt.Sprintf("rect (100,200)-(140,300) %v 2", col),
		fmt.Sprintf("text %q (100,190) %v", "ID#112", col),
		fmt.Sprintf("circle (120,250) 4 %v", col),
	}, c.ops)
}

func TestRender_UntrackedDetectionHasNoLabel(t *testing.T) {
	c := &recorder{w: 640, h: 640}
	d := models.Detection{BBox: [4]float32{10, 10, 20, 20}}

	require.NoError(t, Render(c, []models.Detection{d}, race.State{FrameCount: 10}, testRules(t), race.NewColorTable(1)))

	assert.Equal(t, 1, c.count("rect"))
	assert.Equal(t, 0, c.count("text"))
	assert.Equal(t, 0, c.count("circle"))
}

func TestRender_FinishLineVisibility(t *testing.T) {
	rules := testRules(t)

	tests := []struct {
		name  string
		state race.State
		want  bool
	}{
		{"before start frame", race.State{FrameCount: 719}, false},
		{"at start frame", race.State{FrameCount: 720}, true},
		{"after start frame", race.State{FrameCount: 900}, true},
		{"winner before start frame", race.State{FrameCount: 10, WinnerFound: true, WinnerID: 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recorder{w: 640, h: 640}
			require.NoError(t, Render(c, nil, tt.state, rules, race.NewColorTable(1)))

			if tt.want {
				assert.Contains(t, c.ops, fmt.Sprintf("line (0,384) (640,384) %v 4", FinishColor))
				assert.Contains(t, c.ops, fmt.Sprintf("text %q (10,374) %v", "FINISH", FinishColor))
			} else {
				assert.Equal(t, 0, c.count("line"))
			}
		})
	}
}

func TestRender_WinnerBanner(t *testing.T) {
	c := &recorder{w: 640, h: 640}
	state := race.State{FrameCount: 800, WinnerFound: true, WinnerID: 12, DecisionFrame: 760}

	require.NoError(t, Render(c, nil, state, testRules(t), race.NewColorTable(1)))

	assert.Contains(t, c.ops, fmt.Sprintf("text %q (10,60) %v", "Winner: ID#12", WinnerColor))

	c = &recorder{w: 640, h: 640}
	require.NoError(t, Render(c, nil, race.State{FrameCount: 800}, testRules(t), race.NewColorTable(1)))
	for _, op := range c.ops {
		assert.NotContains(t, op, "Winner")
	}
}

func TestRender_Deterministic(t *testing.T) {
	dets := []models.Detection{
		{BBox: [4]float32{1, 2, 30, 40}, TrackID: 3, Tracked: true},
		{BBox: [4]float32{50, 60, 70, 80}, TrackID: 203, Tracked: true},
	}
	state := race.State{FrameCount: 800, WinnerFound: true, WinnerID: 3}

	a := &recorder{w: 640, h: 640}
	b := &recorder{w: 640, h: 640}
	require.NoError(t, Render(a, dets, state, testRules(t), race.NewColorTable(9)))
	require.NoError(t, Render(b, dets, state, testRules(t), race.NewColorTable(9)))

	assert.Equal(t, a.ops, b.ops)
}

func TestRender_PropagatesCanvasError(t *testing.T) {
	c := &recorder{w: 640, h: 640, failOn: "line"}

	err := Render(c, nil, race.State{FrameCount: 800}, testRules(t), race.NewColorTable(1))
	assert.ErrorContains(t, err, "draw finish line")
}

func TestRender_PropagatesCircleError(t *testing.T) {
	c := &recorder{w: 640, h: 640, failOn: "circle"}
	d := models.Detection{BBox: [4]float32{100, 200, 140, 300}, TrackID: 12, Tracked: true}

	err := Render(c, []models.Detection{d}, race.State{FrameCount: 10}, testRules(t), race.NewColorTable(1))
	assert.ErrorContains(t, err, "draw center 12")
	assert.Equal(t, 0, c.count("circle"))
}
