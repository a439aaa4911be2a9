// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// SegmentNames maps cluster ids to business-facing segment names.
var SegmentNames = map[int]string{
	0: "High Value",
	1: "At Risk",
	2: "New Customer",
	3: "Loyal",
	4: "Price Sensitive",
}

// SegmentName returns the business name for a cluster id, falling back to
// "Segment N" for unknown ids.
func SegmentName(id int) string {
	if name, ok := SegmentNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Segment %d", id)
}

// CentroidSegmenter assigns each row to its nearest centroid by Euclidean
// distance. Centroids live in the encoded feature space.
type CentroidSegmenter struct {
	name      string
	centroids [][]float64
}

// centroidArtifact is the JSON layout of a persisted segmenter.
type centroidArtifact struct {
	Name      string      `json:"name"`
	Centroids [][]float64 `json:"centroids"`
}

// NewCentroidSegmenter builds a segmenter from in-memory centroids.
func NewCentroidSegmenter(name string, centroids [][]float64) *CentroidSegmenter {
	return &CentroidSegmenter{name: name, centroids: centroids}
}

// LoadCentroidSegmenter reads a segmenter artifact from a JSON file.
func LoadCentroidSegmenter(path string) (*CentroidSegmenter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segmentation artifact: %w", err)
	}
	var artifact centroidArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse segmentation artifact %s: %w", path, err)
	}
	if len(artifact.Centroids) == 0 {
		return nil, fmt.Errorf("segmentation artifact %s has no centroids", path)
	}
	return &CentroidSegmenter{name: artifact.Name, centroids: artifact.Centroids}, nil
}

// Name implements SegmentModel.
func (s *CentroidSegmenter) Name() string { return s.name }

// Predict implements SegmentModel.
func (s *CentroidSegmenter) Predict(rows [][]float64) ([]int, error) {
	labels := make([]int, len(rows))
	for i, row := range rows {
		dists := s.Distances(row)
		best := 0
		for k := 1; k < len(dists); k++ {
			if dists[k] < dists[best] {
				best = k
			}
		}
		labels[i] = best
	}
	return labels, nil
}

// Distances implements DistanceReporter. Rows shorter or longer than a
// centroid are compared over the overlapping prefix.
func (s *CentroidSegmenter) Distances(row []float64) []float64 {
	dists := make([]float64, len(s.centroids))
	for k, c := range s.centroids {
		n := len(c)
		if len(row) < n {
			n = len(row)
		}
		var sum float64
		for j := 0; j < n; j++ {
			d := row[j] - c[j]
			sum += d * d
		}
		dists[k] = math.Sqrt(sum)
	}
	return dists
}

var (
	_ SegmentModel     = (*CentroidSegmenter)(nil)
	_ DistanceReporter = (*CentroidSegmenter)(nil)
)
