// Package config loads adapter and CLI settings from a YAML file and the
// environment.
//
// Precedence, lowest first: Default, the YAML file, AML_* environment
// variables. A missing file is not an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable setting.
type Config struct {
	// Workers bounds parallel constraint evaluation; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// IndexStyle is "c" (0-based) or "fortran" (1-based).
	IndexStyle string `yaml:"index_style"`

	// LogLevel is an hclog level name.
	LogLevel string `yaml:"log_level"`

	Check   CheckConfig   `yaml:"check"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CheckConfig configures the finite-difference derivative checker.
type CheckConfig struct {
	Step      float64 `yaml:"step"`
	Tolerance float64 `yaml:"tolerance"`
}

// MetricsConfig configures the prometheus counters.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workers:    0,
		IndexStyle: "c",
		LogLevel:   "info",
		Check: CheckConfig{
			Step:      1e-6,
			Tolerance: 1e-4,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "aml",
		},
	}
}

// Load merges defaults, the file at path (if any) and the environment, then
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	var result *multierror.Error

	if v := os.Getenv("AML_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("AML_WORKERS: %w", err))
		} else {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("AML_INDEX_STYLE"); v != "" {
		cfg.IndexStyle = v
	}
	if v := os.Getenv("AML_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("AML_CHECK_STEP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("AML_CHECK_STEP: %w", err))
		} else {
			cfg.Check.Step = f
		}
	}
	if v := os.Getenv("AML_CHECK_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("AML_CHECK_TOLERANCE: %w", err))
		} else {
			cfg.Check.Tolerance = f
		}
	}
	return result.ErrorOrNil()
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Workers < 0 {
		result = multierror.Append(result, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	switch strings.ToLower(c.IndexStyle) {
	case "", "c", "f", "fortran":
	default:
		result = multierror.Append(result, fmt.Errorf("index_style must be c or fortran, got %q", c.IndexStyle))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.Check.Step <= 0 {
		result = multierror.Append(result, fmt.Errorf("check.step must be > 0, got %g", c.Check.Step))
	}
	if c.Check.Tolerance <= 0 {
		result = multierror.Append(result, fmt.Errorf("check.tolerance must be > 0, got %g", c.Check.Tolerance))
	}
	return result.ErrorOrNil()
}

// Level returns the configured hclog level, defaulting to Info.
func (c Config) Level() hclog.Level {
	if l := hclog.LevelFromString(c.LogLevel); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}
