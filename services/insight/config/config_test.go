// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "12310", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Attribution.PoolSize)
	assert.Equal(t, 30*time.Second, cfg.Attribution.Timeout)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invisor.yaml")
	body := []byte(`
server:
  port: "9000"
attribution:
  pool_size: 8
  timeout: 10s
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Attribution.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.Attribution.Timeout)
	// Untouched sections keep their defaults.
	assert.Equal(t, "models/churn_model.json", cfg.Models.ChurnModelPath)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("INVISOR_PORT", "8123")
	t.Setenv("INVISOR_RATE_LIMIT_RPS", "25.5")
	t.Setenv("INVISOR_ATTRIBUTION_TIMEOUT", "90s")
	t.Setenv("INVISOR_TRACING_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8123", cfg.Server.Port)
	assert.InDelta(t, 25.5, cfg.Server.RateLimitRPS, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.Attribution.Timeout)
	assert.True(t, cfg.Telemetry.Enabled)
}
