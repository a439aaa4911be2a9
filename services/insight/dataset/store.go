// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one immutable version of the active dataset. Handlers take a
// snapshot once per request and read only from it, so an upload arriving
// mid-request never changes what that request sees.
type Snapshot struct {
	// Version is a unique id for this snapshot.
	Version string

	// Filename is the name of the uploaded file, if known.
	Filename string

	// UploadedAt is when the snapshot was published.
	UploadedAt time.Time

	// Table is the parsed, normalized dataset.
	Table *Table
}

// Store holds the process-wide active dataset snapshot. Replace swaps the
// snapshot atomically under a write lock; Current returns the latest
// snapshot under a read lock.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Replace publishes a new snapshot built from the table, invalidating
// nothing explicitly: derived caches are rebuilt per request from whatever
// snapshot the request observes.
func (s *Store) Replace(t *Table, filename string) *Snapshot {
	snap := &Snapshot{
		Version:    uuid.NewString(),
		Filename:   filename,
		UploadedAt: time.Now().UTC(),
		Table:      t,
	}
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return snap
}

// Current returns the active snapshot, or ErrNoDataset when nothing has
// been uploaded yet.
func (s *Store) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoDataset
	}
	return s.current, nil
}

// Loaded reports whether a dataset is available.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}
