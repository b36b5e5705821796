// Package results delivers the outcome of a run to optional downstream stores.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/your-org/finishline/internal/models"
)

// Recorder stores or forwards a finished run.
type Recorder interface {
	Record(ctx context.Context, r models.RaceResult) error
}

// Fanout records to every recorder in order. A failing recorder does not stop the others.
type Fanout struct {
	recorders []Recorder
	logger    *slog.Logger
}

func NewFanout(logger *slog.Logger, recorders ...Recorder) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{recorders: recorders, logger: logger}
}

// Add appends a recorder.
func (f *Fanout) Add(r Recorder) {
	f.recorders = append(f.recorders, r)
}

// Len returns the number of recorders.
func (f *Fanout) Len() int {
	return len(f.recorders)
}

func (f *Fanout) Record(ctx context.Context, r models.RaceResult) error {
	var errs []error
	for _, rec := range f.recorders {
		if err := rec.Record(ctx, r); err != nil {
			f.logger.Warn("record race result failed", "run_id", r.RunID, "recorder", fmt.Sprintf("%T", rec), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ArtifactPrefix is the object key prefix of a run.
func ArtifactPrefix(r models.RaceResult) string {
	return path.Join("runs", r.RunID.String())
}

// ArtifactKey is the object key of the annotated video.
func ArtifactKey(r models.RaceResult) string {
	return path.Join(ArtifactPrefix(r), filepath.Base(r.OutputPath))
}

// ObjectStore is the subset of storage.MinIOStore used for artifacts.
type ObjectStore interface {
	UploadFile(ctx context.Context, key, path, contentType string) error
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// ArtifactRecorder uploads the annotated video and the result JSON.
type ArtifactRecorder struct {
	store       ObjectStore
	contentType string
}

func NewArtifactRecorder(store ObjectStore, contentType string) *ArtifactRecorder {
	if contentType == "" {
		contentType = "video/mp4"
	}
	return &ArtifactRecorder{store: store, contentType: contentType}
}

func (a *ArtifactRecorder) Record(ctx context.Context, r models.RaceResult) error {
	key := r.ArtifactKey
	if key == "" {
		key = ArtifactKey(r)
	}
	if err := a.store.UploadFile(ctx, key, r.OutputPath, a.contentType); err != nil {
		return err
	}

	r.ArtifactKey = key
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return a.store.PutObject(ctx, path.Join(ArtifactPrefix(r), "result.json"), data, "application/json")
}

// Publisher is the subset of queue.Producer used for result events.
type Publisher interface {
	PublishResult(ctx context.Context, runID string, data any) error
}

// EventRecorder publishes the result on the message bus.
type EventRecorder struct {
	pub Publisher
}

func NewEventRecorder(pub Publisher) *EventRecorder {
	return &EventRecorder{pub: pub}
}

func (e *EventRecorder) Record(ctx context.Context, r models.RaceResult) error {
	return e.pub.PublishResult(ctx, r.RunID.String(), r)
}

// ResultStore is the subset of storage.PostgresStore used for result rows.
type ResultStore interface {
	SaveResult(ctx context.Context, r models.RaceResult) error
}

// RowRecorder writes the result to the database.
type RowRecorder struct {
	store ResultStore
}

func NewRowRecorder(store ResultStore) *RowRecorder {
	return &RowRecorder{store: store}
}

func (w *RowRecorder) Record(ctx context.Context, r models.RaceResult) error {
	return w.store.SaveResult(ctx, r)
}
