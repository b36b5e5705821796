package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/finishline/internal/config"
	"github.com/your-org/finishline/internal/models"
)

const createRaceResults = `
CREATE TABLE IF NOT EXISTS race_results (
	run_id           UUID PRIMARY KEY,
	input_path       TEXT NOT NULL,
	output_path      TEXT NOT NULL,
	width            INTEGER NOT NULL,
	height           INTEGER NOT NULL,
	fps              DOUBLE PRECISION NOT NULL,
	total_frames     INTEGER NOT NULL,
	winner_found     BOOLEAN NOT NULL,
	winner_id        INTEGER,
	decision_frame   INTEGER,
	frames_read      INTEGER NOT NULL,
	frames_processed INTEGER NOT NULL,
	cancelled        BOOLEAN NOT NULL,
	artifact_key     TEXT,
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL
)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the race_results table if it is missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createRaceResults); err != nil {
		return fmt.Errorf("migrate race_results: %w", err)
	}
	return nil
}

// SaveResult upserts one run outcome keyed by run id.
func (s *PostgresStore) SaveResult(ctx context.Context, r models.RaceResult) error {
	var decisionFrame *int
	if r.WinnerFound {
		decisionFrame = &r.DecisionFrame
	}
	var artifactKey *string
	if r.ArtifactKey != "" {
		artifactKey = &r.ArtifactKey
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO race_results (run_id, input_path, output_path, width, height, fps, total_frames,
		   winner_found, winner_id, decision_frame, frames_read, frames_processed, cancelled,
		   artifact_key, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (run_id) DO UPDATE SET
		   winner_found = EXCLUDED.winner_found, winner_id = EXCLUDED.winner_id,
		   decision_frame = EXCLUDED.decision_frame, frames_read = EXCLUDED.frames_read,
		   frames_processed = EXCLUDED.frames_processed, cancelled = EXCLUDED.cancelled,
		   artifact_key = EXCLUDED.artifact_key, finished_at = EXCLUDED.finished_at`,
		r.RunID, r.InputPath, r.OutputPath, r.Video.Width, r.Video.Height, r.Video.FPS, r.Video.TotalFrames,
		r.WinnerFound, r.WinnerID, decisionFrame, r.FramesRead, r.FramesProcessed, r.Cancelled,
		artifactKey, r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("save race result %s: %w", r.RunID, err)
	}
	return nil
}

// GetResult returns the stored outcome of a run, or nil if it is unknown.
func (s *PostgresStore) GetResult(ctx context.Context, runID uuid.UUID) (*models.RaceResult, error) {
	r := &models.RaceResult{}
	var decisionFrame *int
	var artifactKey *string
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, input_path, output_path, width, height, fps, total_frames,
		   winner_found, winner_id, decision_frame, frames_read, frames_processed, cancelled,
		   artifact_key, started_at, finished_at
		 FROM race_results WHERE run_id = $1`, runID,
	).Scan(&r.RunID, &r.InputPath, &r.OutputPath, &r.Video.Width, &r.Video.Height, &r.Video.FPS,
		&r.Video.TotalFrames, &r.WinnerFound, &r.WinnerID, &decisionFrame, &r.FramesRead,
		&r.FramesProcessed, &r.Cancelled, &artifactKey, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get race result: %w", err)
	}
	if decisionFrame != nil {
		r.DecisionFrame = *decisionFrame
	}
	if artifactKey != nil {
		r.ArtifactKey = *artifactKey
	}
	return r, nil
}
