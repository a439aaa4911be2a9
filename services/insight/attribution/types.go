// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attribution

import "math"

// Impact is the direction of a local contribution. A contribution of
// exactly zero is Negative by convention (the strict "> 0" comparison
// is kept from the reference pipeline rather than special-cased).
type Impact string

const (
	// ImpactPositive marks contributions pushing toward churn.
	ImpactPositive Impact = "Positive"

	// ImpactNegative marks contributions pushing away from churn.
	ImpactNegative Impact = "Negative"
)

// ImpactOf classifies a signed contribution.
func ImpactOf(contribution float64) Impact {
	if contribution > 0 {
		return ImpactPositive
	}
	return ImpactNegative
}

// Source tags where an explanation came from.
type Source string

const (
	// SourceLive marks attributions computed from the live model.
	SourceLive Source = "real_shap"

	// SourcePrecomputed marks attributions derived from the startup
	// importance table.
	SourcePrecomputed Source = "precomputed"
)

// GlobalEntry is one feature's global attribution.
type GlobalEntry struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Rank       int     `json:"rank"`
}

// LocalEntry is one feature's contribution to a single customer's
// prediction.
type LocalEntry struct {
	CustomerID   string  `json:"customer_id"`
	Feature      string  `json:"feature"`
	Contribution float64 `json:"shap_value"`
	FeatureValue string  `json:"feature_value"`
	Impact       Impact  `json:"impact"`
}

// GlobalResult is a ranked global attribution with its provenance tag.
type GlobalResult struct {
	Entries []GlobalEntry `json:"global_feature_importance"`
	Source  Source        `json:"explanation_type"`
}

// LocalResult is a customer's top-k local attribution with provenance.
type LocalResult struct {
	CustomerID string       `json:"customer_id"`
	Entries    []LocalEntry `json:"explanations"`
	Source     Source       `json:"explanation_type"`
}

// RawValues carries attribution output in any of the shapes binary
// classifiers emit. Exactly one field is set.
type RawValues struct {
	// Matrix is already samples × features.
	Matrix [][]float64

	// PerClass is a list of per-class matrices, [class][sample][feature].
	PerClass [][][]float64

	// Cube is samples × features × classes.
	Cube [][][]float64
}

// PositiveClass reduces any supported shape to the 2-D samples × features
// matrix for the positive class and checks the feature width against the
// encoded matrix.
func PositiveClass(v RawValues, wantFeatures int) ([][]float64, error) {
	var matrix [][]float64
	switch {
	case v.Matrix != nil:
		matrix = v.Matrix
	case v.PerClass != nil:
		idx := len(v.PerClass) - 1
		if idx > 1 {
			idx = 1
		}
		matrix = v.PerClass[idx]
	case v.Cube != nil:
		matrix = make([][]float64, len(v.Cube))
		for i, sample := range v.Cube {
			row := make([]float64, len(sample))
			for j, classes := range sample {
				k := len(classes) - 1
				if k > 1 {
					k = 1
				}
				if k >= 0 {
					row[j] = classes[k]
				}
			}
			matrix[i] = row
		}
	default:
		return nil, &MismatchError{Want: wantFeatures, Got: 0}
	}

	for _, row := range matrix {
		if len(row) != wantFeatures {
			return nil, &MismatchError{Want: wantFeatures, Got: len(row)}
		}
	}
	return matrix, nil
}

// meanAbs returns the column-wise mean absolute value of a samples ×
// features matrix.
func meanAbs(matrix [][]float64) []float64 {
	if len(matrix) == 0 {
		return nil
	}
	out := make([]float64, len(matrix[0]))
	for _, row := range matrix {
		for j, v := range row {
			out[j] += math.Abs(v)
		}
	}
	n := float64(len(matrix))
	for j := range out {
		out[j] /= n
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
