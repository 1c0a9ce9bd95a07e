// Package config handles tool configuration loading and management.
package config

// Config holds all clodtool settings.
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SimplifyConfig holds the edge-collapse cost weights.
type SimplifyConfig struct {
	LengthWeight float64 `yaml:"length_weight"`
	AngleWeight  float64 `yaml:"angle_weight"`
}

// OutputConfig holds .clod output settings.
type OutputConfig struct {
	Compression string `yaml:"compression"` // none, lz4 or zstd
}

// LoggingConfig holds logging and rotation settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			LengthWeight: 10.0,
			AngleWeight:  1.0,
		},
		Output: OutputConfig{
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
