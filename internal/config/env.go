// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/ManuGH/dualentry/internal/log"
	"github.com/ManuGH/dualentry/internal/redact"
	"github.com/rs/zerolog"
)

// ParseString reads a string from the environment or returns defaultValue.
// Values of sensitive keys are never logged.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	return parseStringWithLogger(&logger, key, defaultValue)
}

func parseStringWithLogger(logger *zerolog.Logger, key, defaultValue string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	evt := logger.Debug().Str("key", key).Str("source", "environment")
	if redact.IsSensitiveKey(key) {
		evt = evt.Bool("sensitive", true)
	} else {
		evt = evt.Str("value", v)
	}
	evt.Msg("using environment variable")
	return v
}

// ParseBool reads a boolean from the environment or returns defaultValue.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Bool("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		logger.Debug().Str("key", key).Bool("value", true).Str("source", "environment").Msg("using environment variable")
		return true
	case "false", "0", "no":
		logger.Debug().Str("key", key).Bool("value", false).Str("source", "environment").Msg("using environment variable")
		return false
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Bool("default", defaultValue).
		Msg("invalid boolean in environment variable, using default")
	return defaultValue
}

// ParseFloat reads a float64 from the environment or returns defaultValue.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Float64("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Float64("value", f).Str("source", "environment").Msg("using environment variable")
	return f
}
