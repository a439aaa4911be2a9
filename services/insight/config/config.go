// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the insight service configuration from an optional
// YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full insight service configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `yaml:"server"`

	// Models contains model artifact paths.
	Models ModelsConfig `yaml:"models"`

	// Attribution contains explanation engine settings.
	Attribution AttributionConfig `yaml:"attribution"`

	// Storage contains embedded storage settings.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level string `yaml:"level"`

	// Dir enables JSON file logging to the given directory when set.
	Dir string `yaml:"dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port           string  `yaml:"port"`
	AuthToken      string  `yaml:"auth_token"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// ModelsConfig contains artifact paths. Missing artifacts are tolerated;
// the corresponding model is simply not registered.
type ModelsConfig struct {
	ChurnModelPath   string `yaml:"churn_model_path"`
	SegmentModelPath string `yaml:"segment_model_path"`
}

// AttributionConfig contains explanation engine settings.
type AttributionConfig struct {
	// PrecomputedPath is the importance CSV used as the fallback when
	// no live model can be explained.
	PrecomputedPath string `yaml:"precomputed_path"`

	// WatchPrecomputed hot-reloads the importance table on file change.
	WatchPrecomputed bool `yaml:"watch_precomputed"`

	// PoolSize bounds concurrent attribution computations.
	PoolSize int `yaml:"pool_size"`

	// Timeout bounds one attribution computation.
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig contains embedded storage settings.
type StorageConfig struct {
	// HistoryPath is the BadgerDB directory for the upload history.
	// Empty disables persistence.
	HistoryPath string `yaml:"history_path"`
}

// TelemetryConfig contains tracing settings.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Enabled      bool   `yaml:"enabled"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "12310",
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		Models: ModelsConfig{
			ChurnModelPath:   "models/churn_model.json",
			SegmentModelPath: "models/segmentation_model.json",
		},
		Attribution: AttributionConfig{
			PrecomputedPath:  "models/feature_importance.csv",
			WatchPrecomputed: true,
			PoolSize:         4,
			Timeout:          30 * time.Second,
		},
		Storage: StorageConfig{
			HistoryPath: "data/history",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			Enabled:      false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (when non-empty) over the defaults,
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays INVISOR_* environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "INVISOR_PORT")
	setString(&cfg.Server.AuthToken, "INVISOR_AUTH_TOKEN")
	setString(&cfg.Models.ChurnModelPath, "INVISOR_CHURN_MODEL")
	setString(&cfg.Models.SegmentModelPath, "INVISOR_SEGMENT_MODEL")
	setString(&cfg.Attribution.PrecomputedPath, "INVISOR_PRECOMPUTED_IMPORTANCE")
	setString(&cfg.Storage.HistoryPath, "INVISOR_HISTORY_PATH")
	setString(&cfg.Logging.Level, "INVISOR_LOG_LEVEL")
	setString(&cfg.Logging.Dir, "INVISOR_LOG_DIR")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("INVISOR_TRACING_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("INVISOR_RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimitRPS = rps
		}
	}
	if v := os.Getenv("INVISOR_ATTRIBUTION_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Attribution.PoolSize = n
		}
	}
	if v := os.Getenv("INVISOR_ATTRIBUTION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Attribution.Timeout = d
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
