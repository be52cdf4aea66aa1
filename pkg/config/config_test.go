package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/config"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/enforcement"
)

var envKeys = []string{
	"NOFATE_GENESIS_HASH", "NOFATE_AUTHORITY_ROLE", "NOFATE_POLICY_VERSION",
	"NOFATE_ISSUING_AUTHORITY", "NOFATE_MIN_SOLVERS", "NOFATE_TIMEOUT", "NOFATE_PARALLEL",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_INSECURE", "OTEL_SAMPLE_RATE",
}

func cleanEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// The process must boot with a valid configuration and no environment.
func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg := config.Load()

	assert.Equal(t, config.DefaultGenesisHash, cfg.GenesisHash)
	assert.Equal(t, 4, cfg.MinSolvers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.Parallel)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	require.NoError(t, cfg.Validate())
	require.NoError(t, enforcement.VerifyGenesisBinding(cfg.Binding()))
}

func TestLoad_Overrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("NOFATE_MIN_SOLVERS", "6")
	t.Setenv("NOFATE_TIMEOUT", "5s")
	t.Setenv("NOFATE_PARALLEL", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLE_RATE", "0.25")

	cfg := config.Load()

	assert.Equal(t, 6, cfg.MinSolvers)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Parallel)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRate, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MalformedNumbersKeepDefaults(t *testing.T) {
	cleanEnv(t)
	t.Setenv("NOFATE_MIN_SOLVERS", "four")
	t.Setenv("NOFATE_TIMEOUT", "soon")

	cfg := config.Load()
	assert.Equal(t, 4, cfg.MinSolvers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadFile_Overlay(t *testing.T) {
	cleanEnv(t)
	t.Setenv("NOFATE_ISSUING_AUTHORITY", "from-env")

	path := filepath.Join(t.TempDir(), "nofate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policy_version: 2.0.0
min_solvers: 5
timeout: 10s
log:
  level: warn
  file: /tmp/nofate.log
`), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", cfg.PolicyVersion)
	assert.Equal(t, "2.0.0", cfg.Binding().PolicyVersion)
	assert.Equal(t, 5, cfg.MinSolvers)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "WARN", cfg.Log.Level)
	assert.Equal(t, "/tmp/nofate.log", cfg.Log.File)
	assert.Equal(t, "from-env", cfg.IssuingAuthority)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_solvers: [1"), 0o600))
	_, err = config.LoadFile(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	cleanEnv(t)
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"genesis hash", func(c *config.Config) { c.GenesisHash = "md5:abc" }},
		{"authority role", func(c *config.Config) { c.AuthorityRole = "" }},
		{"min solvers", func(c *config.Config) { c.MinSolvers = 3 }},
		{"timeout", func(c *config.Config) { c.Timeout = 0 }},
		{"parallel", func(c *config.Config) { c.Parallel = -1 }},
		{"log level", func(c *config.Config) { c.Log.Level = "TRACE" }},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }},
		{"sample rate", func(c *config.Config) { c.Telemetry.SampleRate = 1.5 }},
		{"endpoint", func(c *config.Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Load()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), "invalid config")
		})
	}
}
