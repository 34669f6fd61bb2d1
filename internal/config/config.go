package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete converter configuration. Values merge
// in three layers: built-in defaults, an optional YAML file, and
// NWBCONV_* environment variables, with the environment winning.
type Config struct {
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Batch     BatchConfig     `yaml:"batch" envconfig:"BATCH"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// OutputConfig controls where exported containers land.
type OutputConfig struct {
	// Dir receives all exported containers. Empty keeps each output
	// alongside its source file.
	Dir       string `yaml:"dir" envconfig:"DIR"`
	Overwrite bool   `yaml:"overwrite" envconfig:"OVERWRITE"`
}

// BatchConfig controls directory conversion runs.
type BatchConfig struct {
	Workers int    `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	Pattern string `yaml:"pattern" envconfig:"PATTERN" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required"`
}

// TelemetryConfig controls the tracing and metrics side channel.
type TelemetryConfig struct {
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load loads configuration from defaults, an optional YAML file, and
// environment variables. An empty configFile probes the default
// locations.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process("NWBCONV", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays configuration from a YAML file.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// findConfigFile probes the default config file locations.
func findConfigFile() string {
	locations := []string{
		"nwbconv.yaml",
		"config.yaml",
		"configs/nwbconv.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// validate checks the merged configuration and normalizes the logging
// fields to the supported values.
func (c *Config) validate() error {
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "both", "file", "console":
	default:
		c.Logging.Output = "both"
	}

	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	return nil
}

// DestinationDir returns the directory an exported container lands in
// for the given source file. An empty configured dir keeps outputs
// alongside their source.
func (c OutputConfig) DestinationDir(sourcePath string) string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Dir(sourcePath)
}

// EnsureLogDir creates the directory holding the configured log file.
func (c LoggingConfig) EnsureLogDir() error {
	dir := filepath.Dir(c.FilePath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:       "",
			Overwrite: false,
		},
		Batch: BatchConfig{
			Workers: 4,
			Pattern: "*.json",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/nwbconv.log",
		},
		Telemetry: TelemetryConfig{
			EnableTracing: false,
			MetricsFile:   "logs/nwbconv-metrics.prom",
		},
	}
}
