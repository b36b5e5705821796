package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/finishline/internal/api"
	"github.com/your-org/finishline/internal/api/handlers"
	"github.com/your-org/finishline/internal/api/ws"
	"github.com/your-org/finishline/internal/config"
	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/observability"
	"github.com/your-org/finishline/internal/pipeline"
	"github.com/your-org/finishline/internal/queue"
	"github.com/your-org/finishline/internal/race"
	"github.com/your-org/finishline/internal/results"
	"github.com/your-org/finishline/internal/storage"
	"github.com/your-org/finishline/internal/video"
	"github.com/your-org/finishline/internal/vision"
)

func main() {
	flags, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := flags.apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "apply flags: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("race tracking failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// backends are the optional result stores; nil fields are not configured.
type backends struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func (b *backends) close() {
	if b.db != nil {
		b.db.Close()
	}
	if b.producer != nil {
		b.producer.Close()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := uuid.New()
	startedAt := time.Now().UTC()
	slog.Info("starting race tracking",
		"run_id", runID,
		"input", cfg.Race.InputPath,
		"model", cfg.Vision.ModelPath,
		"skip_frames", cfg.Race.SkipFrames,
		"excluded_ids", cfg.Race.ExcludedIDs,
	)

	ort.SetSharedLibraryPath(cfg.Vision.ONNXLibrary)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx runtime: %w", err)
	}
	defer ort.DestroyEnvironment()

	src, err := video.OpenSource(cfg.Race.InputPath)
	if err != nil {
		return err
	}
	meta := src.Metadata()
	slog.Info("source opened",
		"width", meta.Width,
		"height", meta.Height,
		"fps", meta.FPS,
		"total_frames", meta.TotalFrames,
	)

	// The source is owned by the runner once it starts; until then close it here.
	started := false
	defer func() {
		if !started {
			_ = src.Close()
		}
	}()

	rules, err := race.NewRules(cfg.Race, meta.FPS)
	if err != nil {
		return err
	}
	slog.Info("race thresholds",
		"finish_line_y", rules.FinishLinePosition,
		"finish_line_start_frame", rules.FinishLineStartFrame,
		"valid_winner_frame", rules.ValidWinnerFrame,
		"tie_break", rules.TieBreak,
	)

	detector, err := vision.NewDetector(cfg.Vision.ModelPath, vision.DetectorOptions{
		InputW:     cfg.Race.TargetWidth,
		InputH:     cfg.Race.TargetHeight,
		NumClasses: cfg.Vision.NumClasses,
		ClassIDs:   cfg.Vision.ClassIDs,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: load model: %v", models.ErrConfiguration, err)
	}
	defer detector.Close()

	tracker := video.NewTracker(detector, vision.NewTracker(vision.TrackerOptions{
		MaxAge:        cfg.Tracking.MaxAge,
		MinHits:       cfg.Tracking.MinHits,
		MatchIoU:      float32(cfg.Tracking.MatchIoU),
		LowConfidence: float32(cfg.Tracking.LowConfidence),
	}))

	be := connectBackends(ctx, cfg)
	defer be.close()

	progress := pipeline.NewProgress(runID, meta.TotalFrames)
	shutdownServer := startServer(ctx, cfg, progress, be)
	defer shutdownServer()

	if err := os.MkdirAll(cfg.Race.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outputPath := cfg.OutputPath()
	sink, err := video.OpenSink(outputPath, video.DefaultFourCC, meta.FPS, cfg.Race.TargetWidth, cfg.Race.TargetHeight)
	if err != nil {
		return err
	}

	runner := &pipeline.Runner[*video.Frame]{
		Source: src,
		Prep: video.Preprocessor{
			Width:  cfg.Race.TargetWidth,
			Height: cfg.Race.TargetHeight,
			Alpha:  cfg.Vision.BrightnessAlpha,
			Beta:   cfg.Vision.BrightnessBeta,
		},
		Tracker: tracker,
		Sink:    sink,
		Rules:   rules,
		Colors:  race.NewColorTable(cfg.Race.ColorSeed),
		Params: pipeline.TrackParams{
			Confidence: float32(cfg.Vision.ConfidenceThreshold),
			IoU:        float32(cfg.Vision.IoUThreshold),
			Persist:    true,
		},
		Skip:          cfg.Race.SkipFrames,
		TotalFrames:   meta.TotalFrames,
		ProgressEvery: cfg.Race.ProgressEvery,
		Progress:      progress,
		Logger:        slog.Default().With("run_id", runID),
	}
	if cfg.Race.ShowVideo {
		runner.Preview = video.NewPreview("Race Tracking")
	}

	started = true
	outcome, runErr := runner.Run(ctx)
	if runErr != nil {
		if _, err := discardEmptyOutput(outputPath, sink.Frames()); err != nil {
			slog.Warn("remove empty output", "path", outputPath, "error", err)
		}
		return runErr
	}

	result := models.RaceResult{
		RunID:           runID,
		InputPath:       cfg.Race.InputPath,
		OutputPath:      outputPath,
		Video:           meta,
		WinnerFound:     outcome.State.WinnerFound,
		FramesRead:      outcome.FramesRead,
		FramesProcessed: outcome.FramesProcessed,
		Cancelled:       outcome.Cancelled,
		StartedAt:       startedAt,
		FinishedAt:      time.Now().UTC(),
	}
	if id, ok := outcome.State.Winner(); ok {
		result.WinnerID = &id
		result.DecisionFrame = outcome.State.DecisionFrame
		slog.Info("race winner", "track_id", id, "frame", outcome.State.DecisionFrame)
	} else {
		slog.Info("no winner detected", "frames_read", outcome.FramesRead, "cancelled", outcome.Cancelled)
	}
	slog.Info("tracked video saved",
		"path", outputPath,
		"frames_written", sink.Frames(),
		"duration", result.FinishedAt.Sub(startedAt).Round(time.Millisecond).String(),
	)

	recordResult(cfg, be, result)
	return nil
}

// backendTimeout bounds the single connection attempt made to each result store.
const backendTimeout = 5 * time.Second

// connectBackends opens the configured result stores with one bounded attempt
// each. An unreachable store is logged and skipped; it never blocks the race decision.
func connectBackends(parent context.Context, cfg *config.Config) *backends {
	be := &backends{}

	if cfg.Database.Enabled() {
		ctx, cancel := context.WithTimeout(parent, backendTimeout)
		defer cancel()
		db, err := storage.NewPostgresStore(ctx, cfg.Database)
		if err != nil {
			slog.Warn("postgres unavailable, results will not be stored", "error", err)
		} else if err := db.Migrate(ctx); err != nil {
			slog.Warn("migrate postgres", "error", err)
			db.Close()
		} else {
			be.db = db
		}
	}

	if cfg.MinIO.Endpoint != "" {
		ctx, cancel := context.WithTimeout(parent, backendTimeout)
		defer cancel()
		store, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Warn("minio unavailable, video will not be uploaded", "error", err)
		} else if err := store.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "bucket", store.Bucket(), "error", err)
		} else {
			be.minio = store
		}
	}

	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, result will not be published", "error", err)
		} else if err := producer.EnsureStream(parent); err != nil {
			slog.Warn("ensure nats stream", "error", err)
			producer.Close()
		} else {
			be.producer = producer
		}
	}

	return be
}

func recordResult(cfg *config.Config, be *backends, result models.RaceResult) {
	fanout := results.NewFanout(slog.Default())
	if be.minio != nil {
		result.ArtifactKey = results.ArtifactKey(result)
		fanout.Add(results.NewArtifactRecorder(be.minio, contentType(cfg.Race.Container)))
	}
	if be.db != nil {
		fanout.Add(results.NewRowRecorder(be.db))
	}
	if be.producer != nil {
		fanout.Add(results.NewEventRecorder(be.producer))
	}
	if fanout.Len() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := fanout.Record(ctx, result); err == nil {
		slog.Info("race result recorded", "run_id", result.RunID, "artifact_key", result.ArtifactKey)
	}
}

func contentType(container string) string {
	switch container {
	case "avi":
		return "video/x-msvideo"
	case "mkv":
		return "video/x-matroska"
	case "mov":
		return "video/quicktime"
	default:
		return "video/mp4"
	}
}

// startServer runs the status server when a port is configured and returns
// its shutdown function.
func startServer(ctx context.Context, cfg *config.Config, progress *pipeline.Progress, be *backends) func() {
	if cfg.Server.Port <= 0 {
		return func() {}
	}

	hubCtx, cancelHub := context.WithCancel(ctx)
	hub := ws.NewHub()
	go hub.Run(hubCtx)
	progress.Subscribe(hub.Publish)

	routerCfg := api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		Progress: progress,
		Hub:      hub,
		Checks:   map[string]handlers.Pinger{},
	}
	if be.db != nil {
		routerCfg.Results = be.db
		routerCfg.Checks["postgres"] = be.db
	}
	if be.minio != nil {
		routerCfg.Checks["minio"] = be.minio
	}
	if be.producer != nil {
		routerCfg.Checks["nats"] = handlers.PingFunc(func(context.Context) error { return be.producer.Ping() })
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("status server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("status server shutdown error", "error", err)
		}
		cancelHub()
		slog.Info("status server stopped")
	}
}
