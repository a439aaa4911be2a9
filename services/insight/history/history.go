// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists the dataset upload log in an embedded BadgerDB.
//
// The active dataset itself lives only in memory as an immutable snapshot;
// history keeps the audit trail of what was uploaded and when, surviving
// restarts. Keys are ordered by upload time so listing newest-first is a
// reverse iteration, no index needed.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "upload:"

// Record is one persisted upload event.
type Record struct {
	Version    string    `json:"version"`
	Filename   string    `json:"filename"`
	Rows       int       `json:"rows"`
	Columns    int       `json:"columns"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Config holds configuration for the history store.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless InMemory
	// is true.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Useful
	// for testing.
	InMemory bool

	// Logger receives BadgerDB's internal log output. If nil, BadgerDB
	// logging is disabled.
	Logger *slog.Logger
}

// Store is the upload history database.
//
// # Thread Safety
//
// Store is safe for concurrent use; BadgerDB transactions provide
// isolation.
type Store struct {
	db *badger.DB
}

// Open opens the history store.
//
// # Description
//
//	Opens a BadgerDB database at the configured path, creating the
//	directory if needed, or in memory when InMemory is set. The caller
//	must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent history")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists one upload record.
func (s *Store) Append(rec Record) error {
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode upload record: %w", err)
	}
	// Nanosecond timestamp first so lexicographic key order is upload
	// order; version suffix disambiguates same-instant uploads.
	key := fmt.Sprintf("%s%020d:%s", keyPrefix, rec.UploadedAt.UnixNano(), rec.Version)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("persist upload record: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first. A non-positive limit
// returns everything.
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		// Reverse iteration needs a seek key past the whole prefix range.
		seek := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode upload record: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
