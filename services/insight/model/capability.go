// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package model defines the opaque model capabilities the insight engine
// consumes: churn classifiers and customer segmenters.
//
// # Description
//
// Models are registered with an explicit capability tag. Attribution
// strategy selection dispatches on the tag, never on runtime type-name
// inspection. The package also ships deterministic reference
// implementations (a tree ensemble and a centroid segmenter) loaded from
// JSON artifacts so the service runs end to end without external model
// servers.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Model implementations are immutable
// after construction.
package model

import "errors"

// Capability describes what an attribution strategy may rely on.
type Capability string

const (
	// CapabilityTree marks models exposing an introspectable tree
	// ensemble. Enables exact path attribution.
	CapabilityTree Capability = "tree"

	// CapabilityProbability marks models exposing PredictProba but no
	// tree structure. Enables sampling attribution over probabilities.
	CapabilityProbability Capability = "probability"

	// CapabilityPredictOnly marks models exposing only hard predictions.
	// Enables sampling attribution over the raw predict function.
	CapabilityPredictOnly Capability = "predict_only"
)

// Sentinel errors for model operations.
var (
	// ErrChurnModelNotLoaded is returned when prediction is requested
	// before a churn model has been registered.
	ErrChurnModelNotLoaded = errors.New("churn model is not loaded")

	// ErrSegmentModelNotLoaded is returned when segmentation is requested
	// before a segmentation model has been registered.
	ErrSegmentModelNotLoaded = errors.New("segmentation model is not loaded")

	// ErrFeatureMismatch is returned when an input row width does not
	// match the model's feature count.
	ErrFeatureMismatch = errors.New("input feature count does not match model")
)

// ChurnModel is a trained binary churn classifier over encoded feature
// vectors. PredictProba returns the positive-class probability per row.
type ChurnModel interface {
	// Name identifies the model artifact, e.g. "churn_rf_v1".
	Name() string

	// Capability returns the attribution capability tag assigned at
	// registration time.
	Capability() Capability

	// Predict returns the hard 0/1 churn label per row.
	Predict(rows [][]float64) ([]int, error)

	// PredictProba returns the churn probability per row, each in [0,1].
	PredictProba(rows [][]float64) ([]float64, error)
}

// TreeModel is a ChurnModel whose ensemble structure can be walked for
// exact path attribution.
type TreeModel interface {
	ChurnModel

	// Trees returns the ensemble's decision trees.
	Trees() []*Tree
}

// SegmentModel assigns a cluster label to each encoded feature vector.
type SegmentModel interface {
	// Name identifies the model artifact, e.g. "kmeans_segmentation_v1".
	Name() string

	// Predict returns the segment id per row.
	Predict(rows [][]float64) ([]int, error)
}

// DistanceReporter is optionally implemented by segmenters that can report
// per-cluster distances, used to derive assignment confidence.
type DistanceReporter interface {
	// Distances returns the distance from row to every cluster center.
	Distances(row []float64) []float64
}
