// Package config loads process configuration from the environment, with
// an optional YAML file overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/contracts"
)

// DefaultGenesisHash identifies the genesis policy version the pipeline is
// bound to unless overridden.
const DefaultGenesisHash = "sha256:45162862f5360bfd2dfebd5646caa97cc3a400c38e9563e4bea142e43ae70f1a"

const (
	DefaultAuthorityRole    = "competing-solver-harness"
	DefaultPolicyVersion    = "1.0.0"
	DefaultIssuingAuthority = "nofate-harness"
)

// Config holds process configuration.
type Config struct {
	GenesisHash      string        `yaml:"genesis_hash" validate:"required,startswith=sha256:,len=71"`
	AuthorityRole    string        `yaml:"authority_role" validate:"required"`
	PolicyVersion    string        `yaml:"policy_version" validate:"required"`
	IssuingAuthority string        `yaml:"issuing_authority" validate:"required"`
	MinSolvers       int           `yaml:"min_solvers" validate:"gte=4"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	Parallel         int           `yaml:"parallel" validate:"gte=0"`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" validate:"oneof=text json"`
	// File, when set, receives a JSON copy of every record.
	File string `yaml:"file"`
}

type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		GenesisHash:      envOr("NOFATE_GENESIS_HASH", DefaultGenesisHash),
		AuthorityRole:    envOr("NOFATE_AUTHORITY_ROLE", DefaultAuthorityRole),
		PolicyVersion:    envOr("NOFATE_POLICY_VERSION", DefaultPolicyVersion),
		IssuingAuthority: envOr("NOFATE_ISSUING_AUTHORITY", DefaultIssuingAuthority),
		MinSolvers:       envInt("NOFATE_MIN_SOLVERS", 4),
		Timeout:          envDuration("NOFATE_TIMEOUT", 30*time.Second),
		Parallel:         envInt("NOFATE_PARALLEL", 0),
		Log: LogConfig{
			Level:  strings.ToUpper(envOr("LOG_LEVEL", "INFO")),
			Format: strings.ToLower(envOr("LOG_FORMAT", "text")),
			File:   os.Getenv("LOG_FILE"),
		},
		Telemetry: TelemetryConfig{
			Enabled:    os.Getenv("OTEL_ENABLED") == "true",
			Endpoint:   envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:   os.Getenv("OTEL_INSECURE") == "true",
			SampleRate: envFloat("OTEL_SAMPLE_RATE", 1.0),
		},
	}
}

// LoadFile loads environment configuration and overlays the YAML file at
// path. Keys absent from the file keep their environment value.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.Log.Level = strings.ToUpper(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Binding returns the governance binding described by the config.
func (c *Config) Binding() contracts.GovernanceBinding {
	return contracts.GovernanceBinding{
		GenesisHash:   c.GenesisHash,
		AuthorityRole: c.AuthorityRole,
		PolicyVersion: c.PolicyVersion,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
