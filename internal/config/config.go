// Package config handles tool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Validate ValidateConfig `yaml:"validate"`
	OBB      OBBConfig      `yaml:"obb"`
	Batch    BatchConfig    `yaml:"batch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ValidateConfig holds cross-reference validation settings.
type ValidateConfig struct {
	// Strict promotes validation findings to a non-zero exit.
	Strict bool `yaml:"strict"`
	// Tolerant keeps malformed payloads as raw blocks instead of failing
	// the decode.
	Tolerant bool `yaml:"tolerant"`
}

// OBBConfig holds bounding-volume tree builder settings.
type OBBConfig struct {
	LeafThreshold int `yaml:"leaf_threshold"`
}

// BatchConfig holds settings for processing whole model directories.
type BatchConfig struct {
	// Paths lists directories scanned for model files.
	Paths []string `yaml:"paths"`
	// Workers is the number of files processed concurrently.
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Validate: ValidateConfig{
			Strict:   false,
			Tolerant: false,
		},
		OBB: OBBConfig{
			LeafThreshold: 8,
		},
		Batch: BatchConfig{
			Paths:   []string{"."},
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
