// Package config loads the process-level settings of nasc modules from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "NASC"

// Config holds module settings.
type Config struct {
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogOutput     string `mapstructure:"log_output"`
	DefaultModule string `mapstructure:"default_module"`
	Tracing       bool   `mapstructure:"tracing"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.LogOutput == "" {
		c.LogOutput = "stderr"
	}
	if c.DefaultModule == "" {
		c.DefaultModule = "__default__"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("log_level must be a zerolog level (got: %s)", c.LogLevel)
	}
	validFormats := []string{"json", "console"}
	if !contains(validFormats, c.LogFormat) {
		return fmt.Errorf("log_format must be one of %v (got: %s)", validFormats, c.LogFormat)
	}
	validOutputs := []string{"stdout", "stderr"}
	if !contains(validOutputs, c.LogOutput) {
		return fmt.Errorf("log_output must be one of %v (got: %s)", validOutputs, c.LogOutput)
	}
	if strings.TrimSpace(c.DefaultModule) == "" {
		return fmt.Errorf("default_module cannot be blank")
	}
	return nil
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer = os.Stderr
	if c.LogOutput == "stdout" {
		output = os.Stdout
	}
	if c.LogFormat == "console" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Str("component", "nasc").Logger()
}

// LoaderConfig holds optional file overrides.
type LoaderConfig struct {
	EnvFile string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithEnvFile sets the .env file loaded before reading the environment.
// Variables already set in the environment win over the file.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load reads NASC_* environment variables into a Config, applies defaults
// and validates the result.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.EnvFile != "" {
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", lc.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, key := range []string{"log_level", "log_format", "log_output", "default_module", "tracing"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
