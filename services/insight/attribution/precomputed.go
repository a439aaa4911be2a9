// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attribution

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PrecomputedTable holds a global feature-importance table exported by the
// training pipeline. It is the second rung of the fallback chain: when the
// live model cannot be explained, global attribution comes from here and
// local attributions are synthesized against it.
type PrecomputedTable struct {
	path string

	mu      sync.RWMutex
	entries []GlobalEntry
}

// LoadPrecomputed reads an importance CSV with columns `feature`,
// `importance` (or `mean_abs_shap`), and optionally `rank`. Returns
// ErrNoPrecomputed when the file does not exist.
func LoadPrecomputed(path string) (*PrecomputedTable, error) {
	t := &PrecomputedTable{path: path}
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *PrecomputedTable) reload() error {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return ErrNoPrecomputed
	}
	if err != nil {
		return fmt.Errorf("open importance table: %w", err)
	}
	defer f.Close()

	entries, err := parseImportanceCSV(f)
	if err != nil {
		return fmt.Errorf("parse importance table %s: %w", t.path, err)
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

func parseImportanceCSV(r io.Reader) ([]GlobalEntry, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	featureCol, importanceCol, rankCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "feature":
			featureCol = i
		case "importance", "mean_abs_shap":
			importanceCol = i
		case "rank":
			rankCol = i
		}
	}
	if featureCol < 0 || importanceCol < 0 {
		return nil, fmt.Errorf("missing feature/importance columns in %v", header)
	}

	var entries []GlobalEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		importance, err := strconv.ParseFloat(strings.TrimSpace(record[importanceCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad importance for %s: %w", record[featureCol], err)
		}
		entry := GlobalEntry{
			Feature:    strings.TrimSpace(record[featureCol]),
			Importance: round3(importance),
		}
		if rankCol >= 0 && rankCol < len(record) {
			if rank, err := strconv.Atoi(strings.TrimSpace(record[rankCol])); err == nil {
				entry.Rank = rank
			}
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("importance table has no rows")
	}

	// Ranks must be a dense 1..N permutation with importance
	// non-increasing; re-rank from importance when the file disagrees.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Importance > entries[j].Importance
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Entries returns a copy of the table ordered by rank.
func (t *PrecomputedTable) Entries() []GlobalEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]GlobalEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Watch reloads the table whenever the file changes on disk. It blocks
// until the watcher fails or stop is closed; run it in its own goroutine.
func (t *PrecomputedTable) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create importance watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and exporters typically replace the
	// file, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return fmt.Errorf("watch importance directory: %w", err)
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(t.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := t.reload(); err != nil {
				slog.Warn("importance table reload failed", "path", t.path, "error", err)
				continue
			}
			slog.Info("importance table reloaded", "path", t.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("importance watcher error", "error", err)
		}
	}
}
