package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/scan-splitter/internal/detection"
	"github.com/ironsheep/scan-splitter/internal/imaging"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Segment SegmentConfig `yaml:"segment"`
	Vision  VisionConfig  `yaml:"vision"`
	Preview PreviewConfig `yaml:"preview"`
	MinIO   MinIOConfig   `yaml:"minio"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port           int   `yaml:"port"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// MaxPixels caps the pixel count an upload may declare in its header.
	MaxPixels int `yaml:"max_pixels"`
}

// SegmentConfig mirrors detection.Params; zero fields take the detector
// defaults.
type SegmentConfig struct {
	AnalysisMaxDim      int     `yaml:"analysis_max_dim"`
	GapBrightness       float64 `yaml:"gap_brightness"`
	GapFraction         float64 `yaml:"gap_fraction"`
	ContentBrightness   float64 `yaml:"content_brightness"`
	MinRegionSize       int     `yaml:"min_region_size"`
	VisionMinRegionSize int     `yaml:"vision_min_region_size"`
	MaxAreaFraction     float64 `yaml:"max_area_fraction"`
	MergeThreshold      float64 `yaml:"merge_threshold"`
	PaddingFraction     float64 `yaml:"padding_fraction"`
}

// Params converts the section to detector parameters.
func (s SegmentConfig) Params() detection.Params {
	return detection.Params{
		AnalysisMaxDim:      s.AnalysisMaxDim,
		GapBrightness:       s.GapBrightness,
		GapFraction:         s.GapFraction,
		ContentBrightness:   s.ContentBrightness,
		MinRegionSize:       s.MinRegionSize,
		VisionMinRegionSize: s.VisionMinRegionSize,
		MaxAreaFraction:     s.MaxAreaFraction,
		MergeThreshold:      s.MergeThreshold,
		PaddingFraction:     s.PaddingFraction,
	}.WithDefaults()
}

type VisionConfig struct {
	// Enabled allows requests to ask for the vision model. Requests with
	// useAI set are served by the histogram path alone when it is false.
	Enabled    bool          `yaml:"enabled"`
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxTokens  int           `yaml:"max_tokens"`
	MaxRegions int           `yaml:"max_regions"`

	// Temperature is left to the provider default when unset.
	Temperature *float64 `yaml:"temperature"`
}

type PreviewConfig struct {
	MaxDim  int `yaml:"max_dim"`
	Quality int `yaml:"quality"`
	Workers int `yaml:"workers"`

	// BoxColor is the outline colour of annotated pages, "#RRGGBB".
	BoxColor string `yaml:"box_color"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether a crop archive is configured.
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from an optional YAML file and applies environment
// variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

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

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 50 << 20
	}
	if cfg.Server.MaxPixels == 0 {
		cfg.Server.MaxPixels = imaging.DefaultMaxPixels
	}

	p := cfg.Segment.Params()
	cfg.Segment = SegmentConfig{
		AnalysisMaxDim:      p.AnalysisMaxDim,
		GapBrightness:       p.GapBrightness,
		GapFraction:         p.GapFraction,
		ContentBrightness:   p.ContentBrightness,
		MinRegionSize:       p.MinRegionSize,
		VisionMinRegionSize: p.VisionMinRegionSize,
		MaxAreaFraction:     p.MaxAreaFraction,
		MergeThreshold:      p.MergeThreshold,
		PaddingFraction:     p.PaddingFraction,
	}

	if cfg.Vision.Provider == "" {
		cfg.Vision.Provider = "openai"
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = "gpt-4o"
	}
	if cfg.Vision.Timeout == 0 {
		cfg.Vision.Timeout = 30 * time.Second
	}
	if cfg.Vision.MaxTokens == 0 {
		cfg.Vision.MaxTokens = 1024
	}
	if cfg.Vision.MaxRegions == 0 {
		cfg.Vision.MaxRegions = 20
	}
	if cfg.Preview.MaxDim == 0 {
		cfg.Preview.MaxDim = 200
	}
	if cfg.Preview.Quality == 0 {
		cfg.Preview.Quality = 60
	}
	if cfg.Preview.Workers == 0 {
		cfg.Preview.Workers = 4
	}
	if cfg.Preview.BoxColor == "" {
		cfg.Preview.BoxColor = "#FF0000"
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "scan-crops"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCANSPLIT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCANSPLIT_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("SCANSPLIT_MAX_PIXELS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxPixels = n
		}
	}
	if v := os.Getenv("SCANSPLIT_VISION_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Vision.Enabled = b
		}
	}
	if v := os.Getenv("SCANSPLIT_VISION_PROVIDER"); v != "" {
		cfg.Vision.Provider = v
	}
	if v := os.Getenv("SCANSPLIT_VISION_MODEL"); v != "" {
		cfg.Vision.Model = v
	}
	if v := os.Getenv("SCANSPLIT_VISION_BASE_URL"); v != "" {
		cfg.Vision.BaseURL = v
	}
	if v := os.Getenv("SCANSPLIT_VISION_API_KEY"); v != "" {
		cfg.Vision.APIKey = v
	}
	if v := os.Getenv("SCANSPLIT_VISION_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Vision.Temperature = &f
		}
	}
	if v := os.Getenv("SCANSPLIT_VISION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Vision.Timeout = d
		}
	}
	if v := os.Getenv("SCANSPLIT_PREVIEW_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Preview.Workers = n
		}
	}
	if v := os.Getenv("SCANSPLIT_PREVIEW_BOX_COLOR"); v != "" {
		cfg.Preview.BoxColor = v
	}
	if v := os.Getenv("SCANSPLIT_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("SCANSPLIT_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("SCANSPLIT_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("SCANSPLIT_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("SCANSPLIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCANSPLIT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
