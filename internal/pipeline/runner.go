// Package pipeline drives the per-frame race loop:
// read → preprocess → detect/track → race step → render → write → preview.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/observability"
	"github.com/your-org/finishline/internal/race"
	"github.com/your-org/finishline/internal/render"
)

// Runner owns the source, sink and preview for the duration of Run and
// releases them on every exit path.
type Runner[F Frame] struct {
	Source  FrameSource[F]
	Prep    Preprocessor[F]
	Tracker DetectionTracker[F]
	Sink    VideoSink[F]
	Preview Preview[F] // nil disables the live preview

	Rules  race.Rules
	Colors *race.ColorTable
	Params TrackParams
	Skip   int

	TotalFrames   int // from source metadata, used for progress only
	ProgressEvery int // source frames between progress log lines, 0 disables
	Progress      *Progress
	Logger        *slog.Logger
}

// Outcome is the result of a completed or cancelled run.
type Outcome struct {
	State           race.State
	FramesRead      int
	FramesProcessed int
	Cancelled       bool
}

// Run processes frames until the source is exhausted, the preview asks to quit,
// or ctx is cancelled between frames.
func (r *Runner[F]) Run(ctx context.Context) (out Outcome, err error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	skip := r.Skip
	if skip < 1 {
		skip = 1
	}

	defer func() {
		err = errors.Join(err, r.release())
		r.publish(out, true)
	}()

	started := time.Now()
	var state race.State

	for {
		if ctx.Err() != nil {
			out.Cancelled = true
			log.Info("run cancelled", "frame", state.FrameCount)
			break
		}

		raw, err := r.Source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read frame %d: %w", state.FrameCount+1, err)
		}

		state.FrameCount++
		out.FramesRead = state.FrameCount
		out.State = state
		observability.FramesRead.Inc()

		if state.FrameCount%skip != 0 {
			_ = raw.Close()
			r.logProgress(log, state, out.FramesProcessed, started)
			continue
		}

		quit, err := r.processFrame(ctx, log, raw, &state)
		out.State = state
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				out.Cancelled = true
				log.Info("run cancelled", "frame", state.FrameCount)
				break
			}
			return out, err
		}
		out.FramesProcessed++
		observability.FramesProcessed.Inc()
		r.publish(out, false)
		r.logProgress(log, state, out.FramesProcessed, started)

		if quit {
			out.Cancelled = true
			log.Info("preview quit requested", "frame", state.FrameCount)
			break
		}
	}

	return out, nil
}

// processFrame handles one non-skipped frame and reports whether the preview asked to quit.
func (r *Runner[F]) processFrame(ctx context.Context, log *slog.Logger, raw F, state *race.State) (bool, error) {
	defer raw.Close()

	start := time.Now()
	frame, err := r.Prep.Prepare(raw)
	if err != nil {
		return false, fmt.Errorf("preprocess frame %d: %w", state.FrameCount, err)
	}
	defer frame.Close()
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	detections, err := r.Tracker.Track(ctx, frame, r.Params)
	if err != nil {
		return false, fmt.Errorf("track frame %d: %w", state.FrameCount, err)
	}
	observability.InferenceDuration.WithLabelValues("track").Observe(time.Since(start).Seconds())

	detections = sanitize(log, state.FrameCount, detections)

	wasDecided := state.WinnerFound
	*state = race.Step(*state, r.Rules, detections)
	if state.WinnerFound && !wasDecided {
		observability.WinnerFrame.Set(float64(state.DecisionFrame))
		log.Info("winner declared", "track_id", state.WinnerID, "frame", state.DecisionFrame)
	}

	start = time.Now()
	if err := render.Render(frame, detections, *state, r.Rules, r.Colors); err != nil {
		return false, fmt.Errorf("render frame %d: %w", state.FrameCount, err)
	}
	observability.InferenceDuration.WithLabelValues("render").Observe(time.Since(start).Seconds())

	start = time.Now()
	if err := r.Sink.Write(frame); err != nil {
		return false, fmt.Errorf("write frame %d: %w", state.FrameCount, err)
	}
	observability.InferenceDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())

	if r.Preview == nil {
		return false, nil
	}
	quit, err := r.Preview.Show(frame)
	if err != nil {
		return false, fmt.Errorf("preview frame %d: %w", state.FrameCount, err)
	}
	return quit, nil
}

func (r *Runner[F]) release() error {
	var errs []error
	if err := r.Source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	if err := r.Sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sink: %w", err))
	}
	if r.Preview != nil {
		if err := r.Preview.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close preview: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner[F]) publish(out Outcome, finished bool) {
	if r.Progress == nil {
		return
	}
	prev := r.Progress.Snapshot()
	snap := Snapshot{
		FrameCount:      out.State.FrameCount,
		FramesProcessed: out.FramesProcessed,
		WinnerFound:     out.State.WinnerFound,
		WinnerID:        out.State.WinnerID,
		DecisionFrame:   out.State.DecisionFrame,
		Finished:        finished,
		Cancelled:       out.Cancelled,
	}

	eventType := EventProgress
	switch {
	case finished:
		eventType = EventFinished
	case snap.WinnerFound && !prev.WinnerFound:
		eventType = EventWinner
	}
	r.Progress.set(snap, eventType)
}

func (r *Runner[F]) logProgress(log *slog.Logger, state race.State, processed int, started time.Time) {
	if r.ProgressEvery <= 0 || state.FrameCount%r.ProgressEvery != 0 {
		return
	}
	elapsed := time.Since(started).Seconds()
	args := []any{"frame", state.FrameCount, "processed", processed}
	if r.TotalFrames > 0 {
		pct := 100 * float64(state.FrameCount) / float64(r.TotalFrames)
		args = append(args, "total", r.TotalFrames, "percent", math.Round(pct*10)/10)
	}
	if elapsed > 0 {
		args = append(args, "fps", math.Round(float64(state.FrameCount)/elapsed*10)/10)
	}
	log.Info("progress", args...)
}

// sanitize drops detections whose box cannot be drawn. Detections without an
// id are kept; race.Step ignores them.
func sanitize(log *slog.Logger, frame int, detections []models.Detection) []models.Detection {
	kept := detections[:0:0]
	for _, d := range detections {
		if !finiteBox(d.BBox) {
			log.Debug("dropping malformed detection", "frame", frame, "bbox", d.BBox)
			continue
		}
		kept = append(kept, d)
		if d.Tracked {
			observability.DetectionsTotal.WithLabelValues("true").Inc()
		} else {
			observability.DetectionsTotal.WithLabelValues("false").Inc()
		}
	}
	return kept
}

func finiteBox(b [4]float32) bool {
	for _, v := range b {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return b[2] >= b[0] && b[3] >= b[1]
}
