// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestSinkReceivesEntries(t *testing.T) {
	sink := NewMemorySink()
	logger := New(Config{Level: LevelInfo, Service: "test", Quiet: true, Sink: sink})

	logger.Info("snapshot swapped", "version", "v1", "rows", 200)
	logger.Error("attribution failed", "error", "boom")

	entries := sink.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "snapshot swapped", entries[0].Message)
	assert.Equal(t, LevelInfo, entries[0].Level)
	assert.Equal(t, "v1", entries[0].Attrs["version"])
	assert.Equal(t, 200, entries[0].Attrs["rows"])
	assert.Equal(t, LevelError, entries[1].Level)
}

func TestSinkFiltersBelowLevel(t *testing.T) {
	sink := NewMemorySink()
	logger := New(Config{Level: LevelWarn, Service: "test", Quiet: true, Sink: sink})

	logger.Debug("not recorded")
	logger.Info("not recorded either")
	logger.Warn("recorded")

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "recorded", entries[0].Message)
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Level: LevelInfo, Service: "filetest", LogDir: dir, Quiet: true})

	logger.Info("written to file", "key", "value")
	require.NoError(t, logger.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].Name(), "filetest_"))

	data, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"service":"filetest"`)
}

func TestWithAddsAttributes(t *testing.T) {
	sink := NewMemorySink()
	logger := New(Config{Level: LevelInfo, Service: "test", Quiet: true, Sink: sink})

	child := logger.With("request_id", "abc")
	child.Info("child message")

	// The sink sees only the call-site args; the slog attributes ride on
	// the handler. Verify the child still routes to the shared sink.
	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "child message", entries[0].Message)
}

func TestCloseWithoutFileIsNoop(t *testing.T) {
	logger := New(Config{Quiet: true})
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}
