// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the process configuration for dualentry.
//
// Precedence is: environment > file > defaults. CLI flags are applied by the
// caller on top of the loaded AppConfig.
package config

import (
	"github.com/ManuGH/dualentry/internal/eventlog"
	"github.com/ManuGH/dualentry/internal/validate"
)

// EnvPrefix is prepended to every environment key read by the Loader.
const EnvPrefix = "DUALENTRY_"

// AppConfig is the effective runtime configuration.
type AppConfig struct {
	App         string
	Version     string
	LogLevel    string
	LogFormat   string
	LogFile     string
	EventLog    string
	RunLogDir   string
	MetricsFile string
	Telemetry   TelemetryConfig
}

// TelemetryConfig controls span export for runs.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// FileConfig mirrors the YAML layout of a config file.
type FileConfig struct {
	App         string              `yaml:"app,omitempty"`
	LogLevel    string              `yaml:"logLevel,omitempty"`
	LogFormat   string              `yaml:"logFormat,omitempty"`
	LogFile     string              `yaml:"logFile,omitempty"`
	EventLog    string              `yaml:"eventLog,omitempty"`
	RunLogDir   string              `yaml:"runLogDir,omitempty"`
	MetricsFile string              `yaml:"metricsFile,omitempty"`
	Telemetry   TelemetryFileConfig `yaml:"telemetry,omitempty"`
}

// TelemetryFileConfig is the YAML form of TelemetryConfig. Pointers tell
// "unset" apart from zero values.
type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		App:       "dualentry",
		LogLevel:  "info",
		LogFormat: "json",
		RunLogDir: eventlog.DefaultRoot,
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

var (
	logFormats = []string{"json", "console"}
	logLevels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	exporters  = []string{"grpc", "http"}
)

// Validate checks the effective configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()
	v.NotEmpty("App", cfg.App)
	v.OneOf("LogLevel", cfg.LogLevel, logLevels)
	v.OneOf("LogFormat", cfg.LogFormat, logFormats)
	v.NotEmpty("RunLogDir", cfg.RunLogDir)
	if cfg.EventLog != "" {
		v.NotDirectory("EventLog", cfg.EventLog)
	}
	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, exporters)
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
	}
	v.Fraction("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate)
	return v.Err()
}
