package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvConfigPath = "STELLARPOP_CONFIG"
	EnvDBPath     = "STELLARPOP_DB"
)

// SamplerConfig holds the settings for AST position sampling and grid
// storage. Every field is optional; the Get* methods supply defaults.
type SamplerConfig struct {
	// Density-stratified sampler
	NBins       *int `json:"n_bins,omitempty" yaml:"n_bins,omitempty"`
	NRealize    *int `json:"n_realize,omitempty" yaml:"n_realize,omitempty"`
	NPerModel   *int `json:"n_per_model,omitempty" yaml:"n_per_model,omitempty"`
	MaxAttempts *int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`

	// Neighbor offset sampler, in pixels
	Separation *float64 `json:"separation,omitempty" yaml:"separation,omitempty"`
	NoiseWidth *float64 `json:"noise_width,omitempty" yaml:"noise_width,omitempty"`

	// Seed for the random source; unset means seeded from the clock.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	ReferenceImage *string `json:"reference_image,omitempty" yaml:"reference_image,omitempty"`

	// Storage
	DBPath      *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	GridBackend *string `json:"grid_backend,omitempty" yaml:"grid_backend,omitempty"`

	MetricsFile *string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// DefaultSamplerConfig returns a config with every field set to its default.
func DefaultSamplerConfig() *SamplerConfig {
	return &SamplerConfig{
		NBins:       ptrInt(defaultNBins),
		NRealize:    ptrInt(1),
		NPerModel:   ptrInt(1),
		MaxAttempts: ptrInt(defaultMaxAttempts),
		Separation:  ptrFloat64(defaultSeparation),
		NoiseWidth:  ptrFloat64(defaultNoiseWidth),
		DBPath:      ptrString(defaultDBPath),
		GridBackend: ptrString(defaultGridBackend),
	}
}

const (
	defaultNBins       = 20
	defaultMaxAttempts = 1000
	defaultSeparation  = 10.0
	defaultNoiseWidth  = 3.0
	defaultDBPath      = "stellarpop.db"
	defaultGridBackend = "memory"
	maxFileSize        = 1 * 1024 * 1024 // 1MB
)

// LoadSamplerConfig loads a SamplerConfig from a JSON (.json) or YAML
// (.yaml, .yml) file. Fields omitted from the file keep their defaults
// through the Get* methods.
func LoadSamplerConfig(path string) (*SamplerConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SamplerConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv loads envFiles (missing files are ignored), then the config file
// named by STELLARPOP_CONFIG if set. STELLARPOP_DB overrides db_path.
func FromEnv(envFiles ...string) (*SamplerConfig, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &SamplerConfig{}
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		loaded, err := LoadSamplerConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dbPath := strings.TrimSpace(os.Getenv(EnvDBPath)); dbPath != "" {
		cfg.DBPath = ptrString(dbPath)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SamplerConfig) Validate() error {
	if c.NBins != nil && *c.NBins < 1 {
		return fmt.Errorf("n_bins must be at least 1, got %d", *c.NBins)
	}
	if c.NRealize != nil && *c.NRealize < 1 {
		return fmt.Errorf("n_realize must be at least 1, got %d", *c.NRealize)
	}
	if c.MaxAttempts != nil && *c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", *c.MaxAttempts)
	}
	if c.Separation != nil && *c.Separation < 0 {
		return fmt.Errorf("separation must be non-negative, got %f", *c.Separation)
	}
	if c.NoiseWidth != nil && *c.NoiseWidth < 0 {
		return fmt.Errorf("noise_width must be non-negative, got %f", *c.NoiseWidth)
	}
	if c.GridBackend != nil {
		switch strings.ToLower(*c.GridBackend) {
		case "memory", "cache", "sqlite":
		default:
			return fmt.Errorf("grid_backend must be memory, cache or sqlite, got %q", *c.GridBackend)
		}
	}
	return nil
}

// GetNBins returns the n_bins value or the default.
func (c *SamplerConfig) GetNBins() int {
	if c.NBins == nil {
		return defaultNBins
	}
	return *c.NBins
}

// GetNRealize returns the n_realize value or the default.
func (c *SamplerConfig) GetNRealize() int {
	if c.NRealize == nil {
		return 1
	}
	return *c.NRealize
}

// GetNPerModel returns the n_per_model value or the default.
func (c *SamplerConfig) GetNPerModel() int {
	if c.NPerModel == nil {
		return 1
	}
	return *c.NPerModel
}

// GetMaxAttempts returns the max_attempts value or the default.
func (c *SamplerConfig) GetMaxAttempts() int {
	if c.MaxAttempts == nil {
		return defaultMaxAttempts
	}
	return *c.MaxAttempts
}

// GetSeparation returns the separation value or the default.
func (c *SamplerConfig) GetSeparation() float64 {
	if c.Separation == nil {
		return defaultSeparation
	}
	return *c.Separation
}

// GetNoiseWidth returns the noise_width value or the default.
func (c *SamplerConfig) GetNoiseWidth() float64 {
	if c.NoiseWidth == nil {
		return defaultNoiseWidth
	}
	return *c.NoiseWidth
}

// GetSeed returns the seed and whether one was configured.
func (c *SamplerConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetReferenceImage returns the reference_image value, empty if unset.
func (c *SamplerConfig) GetReferenceImage() string {
	if c.ReferenceImage == nil {
		return ""
	}
	return *c.ReferenceImage
}

// GetDBPath returns the db_path value or the default.
func (c *SamplerConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return defaultDBPath
	}
	return *c.DBPath
}

// GetGridBackend returns the grid_backend value or the default.
func (c *SamplerConfig) GetGridBackend() string {
	if c.GridBackend == nil || *c.GridBackend == "" {
		return defaultGridBackend
	}
	return *c.GridBackend
}

// GetMetricsFile returns the metrics_file value, empty if unset.
func (c *SamplerConfig) GetMetricsFile() string {
	if c.MetricsFile == nil {
		return ""
	}
	return *c.MetricsFile
}
