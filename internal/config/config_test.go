package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test simplify defaults
	if cfg.Simplify.LengthWeight != 10.0 {
		t.Errorf("expected length weight 10.0, got %f", cfg.Simplify.LengthWeight)
	}
	if cfg.Simplify.AngleWeight != 1.0 {
		t.Errorf("expected angle weight 1.0, got %f", cfg.Simplify.AngleWeight)
	}

	// Test output defaults
	if cfg.Output.Compression != "zstd" {
		t.Errorf("expected compression 'zstd', got %s", cfg.Output.Compression)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("expected max size 10 MB, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("expected 3 backups, got %d", cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != 7 {
		t.Errorf("expected max age 7 days, got %d", cfg.Logging.MaxAgeDays)
	}
	if !cfg.Logging.Compress {
		t.Error("expected rotated logs to be compressed by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
simplify:
  length_weight: 4.5
  angle_weight: 2.0

output:
  compression: lz4

logging:
  level: "debug"
  log_file: "clodtool.log"
  max_size_mb: 50
  max_backups: 5
  max_age_days: 30
  compress: false
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Simplify.LengthWeight != 4.5 {
		t.Errorf("expected length weight 4.5, got %f", cfg.Simplify.LengthWeight)
	}
	if cfg.Simplify.AngleWeight != 2.0 {
		t.Errorf("expected angle weight 2.0, got %f", cfg.Simplify.AngleWeight)
	}

	if cfg.Output.Compression != "lz4" {
		t.Errorf("expected compression 'lz4', got %s", cfg.Output.Compression)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "clodtool.log" {
		t.Errorf("expected log file 'clodtool.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Logging.MaxSizeMB != 50 {
		t.Errorf("expected max size 50 MB, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.Compress {
		t.Error("expected compress to be false")
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	// A file that only sets one key keeps defaults for the rest.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("output:\n  compression: none\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Output.Compression != "none" {
		t.Errorf("expected compression 'none', got %s", cfg.Output.Compression)
	}
	if cfg.Simplify.LengthWeight != 10.0 {
		t.Errorf("expected default length weight 10.0, got %f", cfg.Simplify.LengthWeight)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
simplify:
  length_weight: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  compression: lz4\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	*flagDebug = true
	defer func() { *flagDebug = false }()

	cfg := Default()
	applyFlags(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
simplify:
  length_weight: 3.0
logging:
  level: "warn"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flags to override config file
	*flagConfig = configPath
	*flagDebug = true
	defer func() {
		*flagConfig = ""
		*flagDebug = false
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Level should be from flag (debug), not file (warn)
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level 'debug' from flag, got %s", cfg.Logging.Level)
	}

	// Length weight should be from file (3.0) since no flag override
	if cfg.Simplify.LengthWeight != 3.0 {
		t.Errorf("expected length weight 3.0 from file, got %f", cfg.Simplify.LengthWeight)
	}
}

func TestSaveTo(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := Default()
	cfg.Output.Compression = "lz4"
	cfg.Simplify.AngleWeight = 2.5

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}

	if loaded.Output.Compression != "lz4" {
		t.Errorf("expected compression 'lz4' after round trip, got %s", loaded.Output.Compression)
	}
	if loaded.Simplify.AngleWeight != 2.5 {
		t.Errorf("expected angle weight 2.5 after round trip, got %f", loaded.Simplify.AngleWeight)
	}
}
