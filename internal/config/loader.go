// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseString(EnvPrefix+key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseBool(EnvPrefix+key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseFloat(EnvPrefix+key, defaultVal)
}

// Load resolves defaults, then the file, then the environment, and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if isUnknownFieldError(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

// yaml.v3 reports unknown keys only through a TypeError message.
func isUnknownFieldError(err error) bool {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return false
	}
	for _, msg := range te.Errors {
		if strings.Contains(msg, "not found in type") {
			return true
		}
	}
	return false
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) {
	setString(&dst.App, src.App)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.LogFormat, src.LogFormat)
	setString(&dst.LogFile, os.ExpandEnv(src.LogFile))
	setString(&dst.EventLog, os.ExpandEnv(src.EventLog))
	setString(&dst.RunLogDir, os.ExpandEnv(src.RunLogDir))
	setString(&dst.MetricsFile, os.ExpandEnv(src.MetricsFile))

	if src.Telemetry.Enabled != nil {
		dst.Telemetry.Enabled = *src.Telemetry.Enabled
	}
	setString(&dst.Telemetry.Exporter, src.Telemetry.Exporter)
	setString(&dst.Telemetry.Endpoint, os.ExpandEnv(src.Telemetry.Endpoint))
	if src.Telemetry.SamplingRate != nil {
		dst.Telemetry.SamplingRate = *src.Telemetry.SamplingRate
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.App = l.envString("APP", cfg.App)
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = l.envString("LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = l.envString("LOG_FILE", cfg.LogFile)
	cfg.EventLog = l.envString("EVENT_LOG", cfg.EventLog)
	cfg.RunLogDir = l.envString("RUN_LOG_DIR", cfg.RunLogDir)
	cfg.MetricsFile = l.envString("METRICS_FILE", cfg.MetricsFile)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
