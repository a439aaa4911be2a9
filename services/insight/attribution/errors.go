// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package attribution computes per-feature attributions for churn
// predictions.
//
// # Description
//
// The engine walks an ordered list of explanation strategies and stops at
// the first success:
//
//  1. live model attribution, selected by the model's capability tag
//     (tree path attribution, sampling over probabilities, or sampling
//     over raw predictions)
//  2. a precomputed global-importance table loaded from CSV, with local
//     explanations synthesized from z-normalized raw values
//  3. an explicit error - attribution is never silently empty
//
// All computation runs through a bounded worker pool with a timeout so one
// expensive request cannot starve the service.
//
// # Thread Safety
//
// Engine and PrecomputedTable are safe for concurrent use.
package attribution

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for attribution operations.
var (
	// ErrAttributionUnavailable is returned when every strategy in the
	// fallback chain has been exhausted.
	ErrAttributionUnavailable = errors.New("could not generate explanations from the live model or precomputed data")

	// ErrNoPrecomputed is returned by the precomputed strategy when no
	// importance table was loaded at startup.
	ErrNoPrecomputed = errors.New("no precomputed importance table available")
)

// InitError is returned when an attribution strategy cannot be constructed
// for the given model.
type InitError struct {
	// Strategy names the strategy that failed to initialize.
	Strategy string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("explainer %s failed to initialize: %v", e.Strategy, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InitError) Unwrap() error { return e.Err }

// TimeoutError is returned when attribution computation exceeds the
// configured limit. Tree attribution cost grows with dataset size, so the
// limit guards the whole request path.
type TimeoutError struct {
	// Op names the operation that timed out.
	Op string

	// Limit is the configured timeout.
	Limit time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded the %s attribution timeout", e.Op, e.Limit)
}

// MismatchError is returned when the attribution output width disagrees
// with the encoded feature matrix. This is a fatal internal inconsistency,
// never tolerated silently.
type MismatchError struct {
	// Want is the encoded matrix feature count.
	Want int

	// Got is the attribution output feature count.
	Got int
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("attribution output has %d features, encoded matrix has %d", e.Got, e.Want)
}
