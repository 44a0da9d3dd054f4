package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/simcore/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything the simcore binary can be tuned with.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Mode is stamped into every response envelope.
	Mode          string `yaml:"mode"`
	ValidateWorld bool   `yaml:"validate_world"`
	ErrorDetail   bool   `yaml:"error_detail"`

	// Workers bounds batch evaluation; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// MaxLineBytes bounds a single request line on stdin.
	MaxLineBytes int `yaml:"max_line_bytes"`

	Trace  TraceConfig  `yaml:"trace"`
	Runner RunnerConfig `yaml:"runner"`
}

type TraceConfig struct {
	// Path of the JSONL trace; empty disables tracing.
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// RunnerConfig supplies defaults for scenarios that leave frames unset.
type RunnerConfig struct {
	Frames int `yaml:"frames"`
	// Topic prefixes the per-run bus topic, "<topic>.<run id>".
	Topic string `yaml:"topic"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		LogLevel:     "info",
		Mode:         "STDIO",
		Workers:      0,
		MaxLineBytes: 16 * 1024 * 1024, // 16MB
		Runner: RunnerConfig{
			Frames: 240,
			Topic:  "sim",
		},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("%w: max_line_bytes must be positive", ErrInvalidConfig)
	}
	if c.Runner.Frames < 0 {
		return fmt.Errorf("%w: runner.frames must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Level returns the parsed log level; Validate has already rejected bad input.
func (c Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}
