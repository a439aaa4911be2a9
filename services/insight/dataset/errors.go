// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dataset holds the active customer dataset as an immutable,
// versioned snapshot and provides CSV parsing, schema validation, and
// numeric encoding for the attribution pipeline.
//
// # Design Principles
//
// The active dataset is replaced wholesale on every upload. There are no
// incremental updates: readers take one Snapshot for the duration of a
// request and everything derived from it is recomputed per request.
//
// # Thread Safety
//
// Store is safe for concurrent use. Table and Snapshot are immutable once
// published and require no synchronization.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for dataset operations.
var (
	// ErrNoDataset is returned when no dataset has been uploaded yet.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrEmptyCSV is returned when an uploaded CSV has no data rows.
	ErrEmptyCSV = errors.New("csv file is empty")
)

// NotFoundError is returned when a customer id is absent from the dataset.
type NotFoundError struct {
	// CustomerID is the identifier that was looked up.
	CustomerID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("customer %s not found", e.CustomerID)
}

// ValidationError is returned when an uploaded dataset does not conform to
// the required schema.
type ValidationError struct {
	// MissingColumns lists required columns absent from the upload.
	MissingColumns []string

	// Reason carries a free-form description when the failure is not a
	// missing column (duplicate header, ragged row, missing identifier).
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("dataset schema invalid: missing columns %s",
			strings.Join(e.MissingColumns, ", "))
	}
	return fmt.Sprintf("dataset schema invalid: %s", e.Reason)
}
