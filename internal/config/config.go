package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Race     RaceConfig     `yaml:"race"`
	Vision   VisionConfig   `yaml:"vision"`
	Tracking TrackingConfig `yaml:"tracking"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RaceConfig is immutable for the duration of a run.
type RaceConfig struct {
	InputPath           string  `yaml:"input_path"`
	OutputDir           string  `yaml:"output_dir"`
	ShowVideo           bool    `yaml:"show_video"`
	SkipFrames          int     `yaml:"skip_frames"`
	TargetWidth         int     `yaml:"target_width"`
	TargetHeight        int     `yaml:"target_height"`
	FinishLineFraction  float64 `yaml:"finish_line_fraction"`
	FinishLineStartTime float64 `yaml:"finish_line_start_time"` // seconds
	ValidWinnerTime     float64 `yaml:"valid_winner_time"`      // seconds
	ExcludedIDs         []int   `yaml:"excluded_ids"`
	TieBreak            string  `yaml:"tie_break"`
	ColorSeed           uint64  `yaml:"color_seed"`
	Container           string  `yaml:"container"`
	ProgressEvery       int     `yaml:"progress_every"`
}

type VisionConfig struct {
	ModelPath           string  `yaml:"model_path"`
	ONNXLibrary         string  `yaml:"onnx_library"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	IoUThreshold        float64 `yaml:"iou_threshold"`
	NumClasses          int     `yaml:"num_classes"`
	ClassIDs            []int   `yaml:"class_ids"`
	BrightnessAlpha     float64 `yaml:"brightness_alpha"`
	BrightnessBeta      float64 `yaml:"brightness_beta"`
}

type TrackingConfig struct {
	MaxAge        int     `yaml:"max_age"`
	MinHits       int     `yaml:"min_hits"`
	MatchIoU      float64 `yaml:"match_iou"`
	LowConfidence float64 `yaml:"low_confidence"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Enabled reports whether race results should be stored in Postgres.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// An empty path yields the defaults plus environment overrides. Defaults are
// laid down before decoding, so a value written in the file, including an
// explicit zero, is kept as written and left to Validate.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Race: RaceConfig{
			OutputDir:           "runs/track/output",
			SkipFrames:          1,
			TargetWidth:         640,
			TargetHeight:        640,
			FinishLineFraction:  0.60,
			FinishLineStartTime: 24,
			ValidWinnerTime:     25,
			ExcludedIDs:         []int{97},
			TieBreak:            "tracker_order",
			ColorSeed:           42,
			Container:           "mp4",
			ProgressEvery:       100,
		},
		Vision: VisionConfig{
			ONNXLibrary:         defaultONNXLibrary(),
			ConfidenceThreshold: 0.5,
			IoUThreshold:        0.7,
			NumClasses:          1,
			BrightnessAlpha:     1.2,
			BrightnessBeta:      10,
		},
		Tracking: TrackingConfig{
			MaxAge:        30,
			MinHits:       1,
			MatchIoU:      0.3,
			LowConfidence: 0.1,
		},
		Database: DatabaseConfig{
			Port:     5432,
			MaxConns: 4,
		},
		MinIO: MinIOConfig{
			Bucket: "race-results",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// setDefaults refills only values that cannot be meaningfully empty; numeric
// options keep explicit zeros so Validate can reject or honour them.
func setDefaults(cfg *Config) {
	if cfg.Race.OutputDir == "" {
		cfg.Race.OutputDir = "runs/track/output"
	}
	if cfg.Race.TieBreak == "" {
		cfg.Race.TieBreak = "tracker_order"
	}
	if cfg.Race.Container == "" {
		cfg.Race.Container = "mp4"
	}
	if cfg.Vision.ONNXLibrary == "" {
		cfg.Vision.ONNXLibrary = defaultONNXLibrary()
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "race-results"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FINISHLINE_INPUT"); v != "" {
		cfg.Race.InputPath = v
	}
	if v := os.Getenv("FINISHLINE_OUTPUT_DIR"); v != "" {
		cfg.Race.OutputDir = v
	}
	if v := os.Getenv("FINISHLINE_SHOW_VIDEO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Race.ShowVideo = b
		}
	}
	if v := os.Getenv("FINISHLINE_SKIP_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Race.SkipFrames = n
		}
	}
	if v := os.Getenv("FINISHLINE_EXCLUDED_IDS"); v != "" {
		if ids, err := ParseIDList(v); err == nil {
			cfg.Race.ExcludedIDs = ids
		}
	}
	if v := os.Getenv("FINISHLINE_MODEL_PATH"); v != "" {
		cfg.Vision.ModelPath = v
	}
	if v := os.Getenv("FINISHLINE_ONNX_LIBRARY"); v != "" {
		cfg.Vision.ONNXLibrary = v
	}
	if v := os.Getenv("FINISHLINE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FINISHLINE_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FINISHLINE_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FINISHLINE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FINISHLINE_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FINISHLINE_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FINISHLINE_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FINISHLINE_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FINISHLINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ParseIDList parses a comma-separated list of track ids, e.g. "97,12".
func ParseIDList(s string) ([]int, error) {
	ids := []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse track id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// defaultONNXLibrary returns the ONNX Runtime shared library name for the OS.
func defaultONNXLibrary() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}
