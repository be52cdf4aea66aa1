package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/config"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/enforcement"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/harness"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/logging"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/observability"
	"github.com/lastmanupinc-hub/no-fate-contract-sub000/pkg/solver"
)

// session bundles what every evaluating command needs.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	obs      *observability.Provider
	closeLog func() error
}

func setup(ctx context.Context, configPath string, stderr io.Writer) (*session, error) {
	cfg := config.Load()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Writer: stderr,
	})
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = Version
	obsCfg.Enabled = cfg.Telemetry.Enabled
	obsCfg.OTLPEndpoint = cfg.Telemetry.Endpoint
	obsCfg.Insecure = cfg.Telemetry.Insecure
	obsCfg.SampleRate = cfg.Telemetry.SampleRate
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("observability: %w", err)
	}

	return &session{cfg: cfg, logger: logger, obs: obs, closeLog: closeLog}, nil
}

func (s *session) close(ctx context.Context) {
	_ = s.obs.Shutdown(ctx)
	_ = s.closeLog()
}

func (s *session) solverConfig() solver.Config {
	return solver.Config{
		Binding:          s.cfg.Binding(),
		IssuingAuthority: s.cfg.IssuingAuthority,
	}
}

func (s *session) harness() (*harness.Harness, error) {
	binding := s.cfg.Binding()
	enforcer, err := enforcement.New(binding,
		enforcement.WithMinSolvers(s.cfg.MinSolvers),
		enforcement.WithLogger(s.logger.With("component", "enforcement")),
	)
	if err != nil {
		return nil, err
	}

	opts := []harness.Option{
		harness.WithTimeout(s.cfg.Timeout),
		harness.WithLogger(s.logger.With("component", "harness")),
		harness.WithObservability(s.obs),
		harness.WithEnforcer(enforcer),
	}
	if s.cfg.Parallel > 0 {
		opts = append(opts, harness.WithParallel(s.cfg.Parallel))
	}
	return harness.New(binding, harness.DefaultEvaluators(s.solverConfig()), opts...)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
