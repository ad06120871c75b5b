package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSamplerConfig(t *testing.T) {
	cfg := DefaultSamplerConfig()

	if cfg.NBins == nil || *cfg.NBins != 20 {
		t.Errorf("Expected NBins 20, got %v", cfg.NBins)
	}
	if cfg.NoiseWidth == nil || *cfg.NoiseWidth != 3.0 {
		t.Errorf("Expected NoiseWidth 3.0, got %v", cfg.NoiseWidth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}

	empty := &SamplerConfig{}
	if empty.GetNBins() != cfg.GetNBins() {
		t.Errorf("GetNBins() = %d on empty config, want %d", empty.GetNBins(), cfg.GetNBins())
	}
	if empty.GetNRealize() != 1 || empty.GetNPerModel() != 1 {
		t.Errorf("realize/per-model defaults = %d/%d, want 1/1", empty.GetNRealize(), empty.GetNPerModel())
	}
	if empty.GetMaxAttempts() != 1000 {
		t.Errorf("GetMaxAttempts() = %d, want 1000", empty.GetMaxAttempts())
	}
	if empty.GetSeparation() != 10 || empty.GetNoiseWidth() != 3 {
		t.Errorf("separation/noise = %f/%f", empty.GetSeparation(), empty.GetNoiseWidth())
	}
	if _, ok := empty.GetSeed(); ok {
		t.Error("empty config must not report a seed")
	}
	if empty.GetDBPath() != "stellarpop.db" || empty.GetGridBackend() != "memory" {
		t.Errorf("storage defaults = %q/%q", empty.GetDBPath(), empty.GetGridBackend())
	}
	if empty.GetReferenceImage() != "" || empty.GetMetricsFile() != "" {
		t.Error("optional paths must default to empty")
	}
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadSamplerConfig_JSON(t *testing.T) {
	path := writeConfig(t, "ast.json", `{
  "n_bins": 8,
  "n_realize": 3,
  "separation": 12.5,
  "seed": 42,
  "grid_backend": "sqlite"
}`)

	cfg, err := LoadSamplerConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetNBins() != 8 {
		t.Errorf("GetNBins() = %d, want 8", cfg.GetNBins())
	}
	if cfg.GetNRealize() != 3 {
		t.Errorf("GetNRealize() = %d, want 3", cfg.GetNRealize())
	}
	if cfg.GetSeparation() != 12.5 {
		t.Errorf("GetSeparation() = %f, want 12.5", cfg.GetSeparation())
	}
	if seed, ok := cfg.GetSeed(); !ok || seed != 42 {
		t.Errorf("GetSeed() = %d, %v; want 42, true", seed, ok)
	}
	if cfg.GetGridBackend() != "sqlite" {
		t.Errorf("GetGridBackend() = %q", cfg.GetGridBackend())
	}
	// omitted fields fall back to defaults
	if cfg.GetNoiseWidth() != 3.0 {
		t.Errorf("GetNoiseWidth() = %f, want default 3.0", cfg.GetNoiseWidth())
	}
}

func TestLoadSamplerConfig_YAML(t *testing.T) {
	path := writeConfig(t, "ast.yaml", `
n_bins: 5
noise_width: 1.5
reference_image: /data/brick1_F475W.fits
metrics_file: /var/lib/node_exporter/astlist.prom
`)

	cfg, err := LoadSamplerConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetNBins() != 5 || cfg.GetNoiseWidth() != 1.5 {
		t.Errorf("got n_bins=%d noise_width=%f", cfg.GetNBins(), cfg.GetNoiseWidth())
	}
	if cfg.GetReferenceImage() != "/data/brick1_F475W.fits" {
		t.Errorf("GetReferenceImage() = %q", cfg.GetReferenceImage())
	}
	if cfg.GetMetricsFile() != "/var/lib/node_exporter/astlist.prom" {
		t.Errorf("GetMetricsFile() = %q", cfg.GetMetricsFile())
	}

	empty, err := LoadSamplerConfig(writeConfig(t, "empty.yml", ""))
	if err != nil {
		t.Fatalf("empty YAML should load: %v", err)
	}
	if empty.GetNBins() != 20 {
		t.Errorf("GetNBins() = %d, want default", empty.GetNBins())
	}
}

func TestLoadSamplerConfig_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad_extension", "ast.toml", "n_bins = 3", "extension"},
		{"bad_json", "ast.json", "{", "parse config JSON"},
		{"bad_yaml", "ast.yaml", "n_bins: [", "parse config YAML"},
		{"unknown_yaml_key", "ast.yaml", "nbins: 3", "parse config YAML"},
		{"zero_bins", "ast.json", `{"n_bins": 0}`, "n_bins"},
		{"zero_realize", "ast.json", `{"n_realize": 0}`, "n_realize"},
		{"negative_separation", "ast.json", `{"separation": -1}`, "separation"},
		{"negative_noise", "ast.yaml", "noise_width: -2", "noise_width"},
		{"zero_attempts", "ast.json", `{"max_attempts": 0}`, "max_attempts"},
		{"bad_backend", "ast.json", `{"grid_backend": "hdf"}`, "grid_backend"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadSamplerConfig(writeConfig(t, tc.file, tc.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}

	if _, err := LoadSamplerConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadSamplerConfig_TooLarge(t *testing.T) {
	big := `{"n_bins": 3` + strings.Repeat(" ", maxFileSize) + `}`
	_, err := LoadSamplerConfig(writeConfig(t, "big.json", big))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	cfgPath := writeConfig(t, "ast.json", `{"n_bins": 4}`)
	envFile := writeConfig(t, ".env", "STELLARPOP_CONFIG="+cfgPath+"\nSTELLARPOP_DB=/tmp/from-env.db\n")

	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvDBPath, "")
	os.Unsetenv(EnvConfigPath)
	os.Unsetenv(EnvDBPath)

	cfg, err := FromEnv(envFile, filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.GetNBins() != 4 {
		t.Errorf("GetNBins() = %d, want 4 from %s", cfg.GetNBins(), EnvConfigPath)
	}
	if cfg.GetDBPath() != "/tmp/from-env.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
}

func TestFromEnv_NoFiles(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvDBPath, "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.GetDBPath() != "stellarpop.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
}
