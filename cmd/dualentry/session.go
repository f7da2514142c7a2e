// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/dualentry/internal/config"
	"github.com/ManuGH/dualentry/internal/contract"
	"github.com/ManuGH/dualentry/internal/eventlog"
	dlog "github.com/ManuGH/dualentry/internal/log"
	"github.com/ManuGH/dualentry/internal/metrics"
	"github.com/ManuGH/dualentry/internal/runner"
	"github.com/ManuGH/dualentry/internal/telemetry"
	"github.com/ManuGH/dualentry/internal/version"
	"github.com/rs/zerolog"
)

// modeCLI tags every run started from this binary.
const modeCLI = "cli"

// session is the per-invocation wiring shared by commands that run jobs.
type session struct {
	cfg     config.AppConfig
	logger  zerolog.Logger
	metrics *metrics.Recorder
	tracing *telemetry.Provider
	runner  *runner.Runner
}

func openSession(ctx context.Context, g *globalFlags, stderr io.Writer) (*session, error) {
	cfg, err := config.NewLoader(g.configPath, version.Version).Load()
	if err != nil {
		return nil, exitWith(exitUsage, err)
	}
	overrideFromFlags(&cfg, g)
	if err := config.Validate(cfg); err != nil {
		return nil, exitWith(exitUsage, fmt.Errorf("validate config: %w", err))
	}

	logErr := dlog.Configure(dlog.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  stderr,
		File:    cfg.LogFile,
		Service: cfg.App,
		Version: cfg.Version,
	})
	logger := dlog.WithComponent("cli")
	if logErr != nil {
		logger.Warn().Err(logErr).Str(dlog.FieldPath, cfg.LogFile).Msg("log file unavailable, logging to stderr only")
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.App,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, exitWith(exitUsage, fmt.Errorf("init telemetry: %w", err))
	}

	rec := metrics.NewRecorder()
	sink := eventlog.New(eventlog.Options{
		EventLog:   cfg.EventLog,
		Root:       cfg.RunLogDir,
		LoggerName: contract.LoggerName,
		Failures:   rec,
	})
	r := runner.New(runner.Options{
		App:      cfg.App,
		Version:  cfg.Version,
		EventLog: cfg.EventLog,
		Sink:     sink,
		Metrics:  rec,
	})

	return &session{cfg: cfg, logger: logger, metrics: rec, tracing: tp, runner: r}, nil
}

func overrideFromFlags(cfg *config.AppConfig, g *globalFlags) {
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	if g.logFile != "" {
		cfg.LogFile = g.logFile
	}
	if g.eventLog != "" {
		cfg.EventLog = g.eventLog
	}
	if g.metricsFile != "" {
		cfg.MetricsFile = g.metricsFile
	}
}

// close flushes metrics and traces. Failures are logged only; they never
// change the exit code.
func (s *session) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			s.logger.Warn().Err(err).Str(dlog.FieldPath, s.cfg.MetricsFile).Msg("metrics export failed")
		}
	}
	if err := s.tracing.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("telemetry shutdown failed")
	}
}
