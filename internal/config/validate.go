package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/your-org/finishline/internal/models"
)

var tieBreaks = map[string]bool{
	"tracker_order":      true,
	"lowest_id":          true,
	"highest_confidence": true,
}

// Validate checks the run configuration before any output is produced.
// Every returned error wraps models.ErrConfiguration.
func (c *Config) Validate() error {
	r := c.Race

	if r.InputPath == "" {
		return fmt.Errorf("%w: input video path is required", models.ErrConfiguration)
	}
	if err := requireFile(r.InputPath); err != nil {
		return fmt.Errorf("%w: input video: %v", models.ErrConfiguration, err)
	}
	if c.Vision.ModelPath == "" {
		return fmt.Errorf("%w: model path is required", models.ErrConfiguration)
	}
	if err := requireFile(c.Vision.ModelPath); err != nil {
		return fmt.Errorf("%w: model: %v", models.ErrConfiguration, err)
	}
	if r.SkipFrames < 1 {
		return fmt.Errorf("%w: skip_frames must be >= 1, got %d", models.ErrConfiguration, r.SkipFrames)
	}
	if r.TargetWidth <= 0 || r.TargetHeight <= 0 {
		return fmt.Errorf("%w: target size must be positive, got %dx%d",
			models.ErrConfiguration, r.TargetWidth, r.TargetHeight)
	}
	if r.FinishLineFraction <= 0 || r.FinishLineFraction > 1 {
		return fmt.Errorf("%w: finish_line_fraction must be in (0,1], got %g",
			models.ErrConfiguration, r.FinishLineFraction)
	}
	if r.FinishLineStartTime < 0 || r.ValidWinnerTime < 0 {
		return fmt.Errorf("%w: times must be non-negative", models.ErrConfiguration)
	}
	if !tieBreaks[r.TieBreak] {
		return fmt.Errorf("%w: unknown tie_break %q", models.ErrConfiguration, r.TieBreak)
	}
	if strings.ContainsAny(r.Container, `/\.`) || r.Container == "" {
		return fmt.Errorf("%w: invalid container %q", models.ErrConfiguration, r.Container)
	}
	return nil
}

// OutputPath returns {output_dir}/{input_basename}_tracked.<container>.
func (c *Config) OutputPath() string {
	base := filepath.Base(c.Race.InputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.Race.OutputDir, name+"_tracked."+c.Race.Container)
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist", path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
